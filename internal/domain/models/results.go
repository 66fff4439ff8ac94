package models

import (
	"fmt"
	"strings"
	"time"
)

// ModelFit captures everything the engine keeps from fitting an
// expectation model on the estimation window. Immutable once built.
type ModelFit struct {
	Kind             ModelKind
	Coefficients     []float64 // intercept first, then slopes
	ResidualVariance float64
	DegreesOfFreedom int
	// Residuals over the estimation window, kept for the rank test.
	Residuals []float64
	// PositiveShare is the fraction of positive estimation-window
	// residuals, the baseline of the generalized sign test.
	PositiveShare float64
}

// SingleEventResult holds the per-offset tables of one event study.
// All slices are indexed 1:1 with Offsets and never mutated after build.
type SingleEventResult struct {
	Spec        EventSpec
	Fit         ModelFit
	Description string

	Offsets      []int
	AR           []float64
	VarAR        []float64
	CAR          []float64
	VarCAR       []float64
	TStat        []float64
	PValue       []float64
	Significance []string
}

// EventError records one event that could not be computed.
type EventError struct {
	Event string `json:"event"`
	Kind  string `json:"kind"`
	Msg   string `json:"message"`
}

// TestResult is the outcome of a nonparametric cross-sectional test.
type TestResult struct {
	Name      string  `json:"name"`
	Offset    int     `json:"offset"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
}

// CARDistRow summarizes the cross-section of event CARs at one offset.
type CARDistRow struct {
	Offset   int     `json:"offset"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Kurtosis float64 `json:"kurtosis"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
}

// MultipleEventResult aggregates a batch of single-event results. It
// references the surviving results without altering them.
type MultipleEventResult struct {
	Results []*SingleEventResult
	Errors  []EventError

	Offsets      []int
	AAR          []float64
	VarAAR       []float64
	CAAR         []float64
	VarCAAR      []float64
	TStat        []float64
	PValue       []float64
	Significance []string

	// DF is the summed degrees of freedom across surviving events,
	// used for the aggregate t distribution.
	DF int

	SignTest TestResult
	RankTest TestResult
	CARDist  []CARDistRow
}

// OffsetRow is one line of the per-offset result table. For aggregates
// the AR columns carry AAR/CAAR values.
type OffsetRow struct {
	Offset       int     `json:"offset"`
	AR           float64 `json:"ar"`
	VarAR        float64 `json:"var_ar"`
	CAR          float64 `json:"car"`
	VarCAR       float64 `json:"var_car"`
	TStat        float64 `json:"t_stat"`
	PValue       float64 `json:"p_value"`
	Significance string  `json:"significance"`
}

// Table renders the result as ordered per-offset rows.
func (r *SingleEventResult) Table() []OffsetRow {
	rows := make([]OffsetRow, len(r.Offsets))
	for t, offset := range r.Offsets {
		rows[t] = OffsetRow{
			Offset:       offset,
			AR:           r.AR[t],
			VarAR:        r.VarAR[t],
			CAR:          r.CAR[t],
			VarCAR:       r.VarCAR[t],
			TStat:        r.TStat[t],
			PValue:       r.PValue[t],
			Significance: r.Significance[t],
		}
	}
	return rows
}

// Table renders the aggregate as ordered per-offset rows with AAR/CAAR
// in the abnormal-return columns.
func (r *MultipleEventResult) Table() []OffsetRow {
	rows := make([]OffsetRow, len(r.Offsets))
	for t, offset := range r.Offsets {
		rows[t] = OffsetRow{
			Offset:       offset,
			AR:           r.AAR[t],
			VarAR:        r.VarAAR[t],
			CAR:          r.CAAR[t],
			VarCAR:       r.VarCAAR[t],
			TStat:        r.TStat[t],
			PValue:       r.PValue[t],
			Significance: r.Significance[t],
		}
	}
	return rows
}

// StoredResultRow is one persisted per-offset row of a study result.
type StoredResultRow struct {
	Security     string    `json:"security"`
	EventDate    time.Time `json:"event_date"`
	Model        string    `json:"model"`
	Offset       int32     `json:"offset"`
	AR           float64   `json:"ar"`
	CAR          float64   `json:"car"`
	TStat        float64   `json:"t_stat"`
	PValue       float64   `json:"p_value"`
	Significance string    `json:"significance"`
}

// ErrorReport renders the excluded events as one line per failure, for
// logs and API payloads.
func (r *MultipleEventResult) ErrorReport() string {
	if len(r.Errors) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d event(s) excluded:\n", len(r.Errors))
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %s: %s: %s\n", e.Event, e.Kind, e.Msg)
	}
	return b.String()
}
