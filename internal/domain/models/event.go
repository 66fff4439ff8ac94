package models

import (
	"fmt"
	"time"
)

// ModelKind selects the expectation model used to fit a single event.
type ModelKind string

const (
	ModelConstantMean ModelKind = "constant_mean"
	ModelMarket       ModelKind = "market_model"
	ModelThreeFactor  ModelKind = "ff3"
	ModelFiveFactor   ModelKind = "ff5"
)

// ParseModelKind maps a config/request string onto a ModelKind.
func ParseModelKind(s string) (ModelKind, error) {
	switch ModelKind(s) {
	case ModelConstantMean, ModelMarket, ModelThreeFactor, ModelFiveFactor:
		return ModelKind(s), nil
	}
	return "", fmt.Errorf("unknown expectation model %q", s)
}

// EventWindow is a pair of signed offsets around the event date, in
// trading days, both inclusive. Start <= 0 <= End.
type EventWindow struct {
	Start int
	End   int
}

// Size returns the number of trading days covered by the window.
func (w EventWindow) Size() int { return w.End - w.Start + 1 }

// Validate checks the window invariants.
func (w EventWindow) Validate() error {
	if w.Start > 0 || w.End < 0 {
		return fmt.Errorf("event window (%d,%d) must satisfy start <= 0 <= end", w.Start, w.End)
	}
	return nil
}

// EventSpec fully describes one event study request. The raw series are
// supplied by the data source; the spec itself is never mutated.
type EventSpec struct {
	Security       string
	Market         string
	EventDate      time.Time
	Window         EventWindow
	EstimationSize int
	BufferSize     int
	Model          ModelKind
}

// Validate checks the spec's static invariants. Window resolution against
// an actual series happens later and has its own failure modes.
func (s EventSpec) Validate() error {
	if s.Security == "" {
		return fmt.Errorf("security ticker is required")
	}
	if err := s.Window.Validate(); err != nil {
		return err
	}
	if s.EstimationSize <= 0 {
		return fmt.Errorf("estimation size must be positive, got %d", s.EstimationSize)
	}
	if s.BufferSize < 0 {
		return fmt.Errorf("buffer size must be non-negative, got %d", s.BufferSize)
	}
	if s.Model == ModelMarket && s.Market == "" {
		return fmt.Errorf("market ticker is required for the market model")
	}
	return nil
}

// Label identifies the event in logs, error reports and stored rows.
func (s EventSpec) Label() string {
	return fmt.Sprintf("%s@%s", s.Security, s.EventDate.Format("2006-01-02"))
}
