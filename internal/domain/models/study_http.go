package models

import (
	"fmt"
	"time"
)

// StudyRequest is the body of POST /api/study.
type StudyRequest struct {
	Security       string `json:"security" validate:"required"`
	Market         string `json:"market"`
	EventDate      string `json:"event_date" validate:"required"`
	WindowStart    int    `json:"window_start" validate:"lte=0"`
	WindowEnd      int    `json:"window_end" validate:"gte=0"`
	EstimationSize int    `json:"estimation_size" default:"300" validate:"gt=0"`
	BufferSize     int    `json:"buffer_size" default:"30" validate:"gte=0"`
	Model          string `json:"model" default:"market_model" validate:"oneof=constant_mean market_model ff3 ff5"`
	Export         string `json:"export" validate:"omitempty,oneof=xlsx csv"`
}

// ToSpec converts the request into an engine spec.
func (r *StudyRequest) ToSpec(dateLayout string) (EventSpec, error) {
	if dateLayout == "" {
		dateLayout = "2006-01-02"
	}
	d, err := time.Parse(dateLayout, r.EventDate)
	if err != nil {
		return EventSpec{}, fmt.Errorf("event_date %q does not match layout %s", r.EventDate, dateLayout)
	}
	kind, err := ParseModelKind(r.Model)
	if err != nil {
		return EventSpec{}, err
	}
	spec := EventSpec{
		Security:       r.Security,
		Market:         r.Market,
		EventDate:      d,
		Window:         EventWindow{Start: r.WindowStart, End: r.WindowEnd},
		EstimationSize: r.EstimationSize,
		BufferSize:     r.BufferSize,
		Model:          kind,
	}
	return spec, spec.Validate()
}

// BatchEvent is one event row of a batch request. Empty fields fall
// back to the batch-level template.
type BatchEvent struct {
	Security  string `json:"security" validate:"required"`
	Market    string `json:"market"`
	EventDate string `json:"event_date" validate:"required"`
	Model     string `json:"model"`
}

// BatchRequest is the body of POST /api/batch.
type BatchRequest struct {
	Events         []BatchEvent `json:"events" validate:"required,min=1,dive"`
	Market         string       `json:"market"`
	WindowStart    int          `json:"window_start" validate:"lte=0"`
	WindowEnd      int          `json:"window_end" validate:"gte=0"`
	EstimationSize int          `json:"estimation_size" default:"300" validate:"gt=0"`
	BufferSize     int          `json:"buffer_size" default:"30" validate:"gte=0"`
	Model          string       `json:"model" default:"market_model" validate:"oneof=constant_mean market_model ff3 ff5"`
	IgnoreErrors   *bool        `json:"ignore_errors"`
	Workers        int          `json:"workers" validate:"gte=0"`
	Export         string       `json:"export" validate:"omitempty,oneof=xlsx csv"`
}

// Template builds the spec template shared by every row.
func (r *BatchRequest) Template() (EventSpec, error) {
	kind, err := ParseModelKind(r.Model)
	if err != nil {
		return EventSpec{}, err
	}
	return EventSpec{
		Market:         r.Market,
		Window:         EventWindow{Start: r.WindowStart, End: r.WindowEnd},
		EstimationSize: r.EstimationSize,
		BufferSize:     r.BufferSize,
		Model:          kind,
	}, nil
}

// Records converts the rows into loader parameter mappings.
func (r *BatchRequest) Records() []map[string]string {
	records := make([]map[string]string, len(r.Events))
	for i, ev := range r.Events {
		records[i] = map[string]string{
			"security_ticker": ev.Security,
			"market_ticker":   ev.Market,
			"event_date":      ev.EventDate,
			"model":           ev.Model,
		}
	}
	return records
}

// StudyResponse is the payload of a successful single study.
type StudyResponse struct {
	Event       string      `json:"event"`
	Model       string      `json:"model"`
	Description string      `json:"description"`
	DF          int         `json:"df"`
	Rows        []OffsetRow `json:"rows"`
	ExportPath  string      `json:"export_path,omitempty"`
}

// BatchResponse is the payload of a batch study.
type BatchResponse struct {
	Survivors    int          `json:"survivors"`
	Excluded     []EventError `json:"excluded"`
	DF           int          `json:"df"`
	Rows         []OffsetRow  `json:"rows"`
	SignTest     TestResult   `json:"sign_test"`
	RankTest     TestResult   `json:"rank_test"`
	Distribution []CARDistRow `json:"distribution"`
	ExportPath   string       `json:"export_path,omitempty"`
}
