package models

import (
	"fmt"
	"time"
)

// ReturnSeries holds one security's daily returns on a trading calendar.
// Dates are strictly increasing; the series is read-only once built.
type ReturnSeries struct {
	Ticker  string
	Dates   []time.Time
	Returns []float64
}

// Len returns the number of observations.
func (s ReturnSeries) Len() int { return len(s.Returns) }

// Validate checks the series invariants.
func (s ReturnSeries) Validate() error {
	if len(s.Dates) != len(s.Returns) {
		return fmt.Errorf("series %s: %d dates vs %d returns", s.Ticker, len(s.Dates), len(s.Returns))
	}
	for i := 1; i < len(s.Dates); i++ {
		if !s.Dates[i].After(s.Dates[i-1]) {
			return fmt.Errorf("series %s: dates not strictly increasing at %d", s.Ticker, i)
		}
	}
	return nil
}

// FactorSeries holds factor returns aligned to a trading calendar.
// Columns are stored by factor name; every column has len(Dates) values.
type FactorSeries struct {
	Name    string
	Dates   []time.Time
	Columns map[string][]float64
}

// Len returns the number of observations.
func (s FactorSeries) Len() int { return len(s.Dates) }

// Column returns the named factor column, or an error when absent.
func (s FactorSeries) Column(name string) ([]float64, error) {
	col, ok := s.Columns[name]
	if !ok {
		return nil, fmt.Errorf("factor set %s: column %q not available", s.Name, name)
	}
	if len(col) != len(s.Dates) {
		return nil, fmt.Errorf("factor set %s: column %q has %d values for %d dates", s.Name, name, len(col), len(s.Dates))
	}
	return col, nil
}
