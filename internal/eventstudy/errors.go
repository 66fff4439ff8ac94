package eventstudy

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so that batch runs can report and
// filter them without string matching.
type Kind string

const (
	KindDateNotFound        Kind = "DateNotFound"
	KindInsufficientHistory Kind = "InsufficientHistory"
	KindSingularFit         Kind = "SingularFit"
	KindMalformedInput      Kind = "MalformedInput"
)

// Error is the engine's failure type. Every failure that excludes an
// event from aggregation is one of these; nothing is silently dropped.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

// WrapError attaches an engine kind to an underlying error.
func WrapError(kind Kind, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

// KindOf returns the engine kind of err, or "" when err is not an
// engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
