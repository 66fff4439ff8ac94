package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"EventPull/internal/domain/models"
	"EventPull/internal/domain/repository"
)

// FactorCSV implements FactorSource over a Fama-French style factor
// file: a date column in yyyymmdd form followed by factor columns in
// percent. Values are rescaled to plain returns on load.
type FactorCSV struct {
	path       string
	dateLayout string

	mu     sync.Mutex
	loaded *models.FactorSeries
}

// NewFactorCSV creates a factor source. dateLayout defaults to the
// Fama-French 20060102 form.
func NewFactorCSV(path, dateLayout string) repository.FactorSource {
	if dateLayout == "" {
		dateLayout = "20060102"
	}
	return &FactorCSV{path: path, dateLayout: dateLayout}
}

// GetFactors returns the factor columns clipped to [from, to]. The same
// file serves every factor model; column selection happens downstream.
func (s *FactorCSV) GetFactors(ctx context.Context, model models.ModelKind, from, to time.Time) (models.FactorSeries, error) {
	if err := s.load(); err != nil {
		return models.FactorSeries{}, err
	}

	lo, hi := clipRange(s.loaded.Dates, from, to)
	out := models.FactorSeries{
		Name:    s.loaded.Name,
		Dates:   s.loaded.Dates[lo:hi],
		Columns: make(map[string][]float64, len(s.loaded.Columns)),
	}
	for name, col := range s.loaded.Columns {
		out.Columns[name] = col[lo:hi]
	}
	return out, nil
}

func (s *FactorCSV) Close() error { return nil }

func (s *FactorCSV) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded != nil {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open factors file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read factors header: %w", err)
	}
	if len(header) < 2 {
		return fmt.Errorf("factors file %s needs a date column and at least one factor", s.path)
	}
	names := header[1:]

	var dates []time.Time
	columns := make(map[string][]float64, len(names))

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read factors row %d: %w", line, err)
		}
		line++

		d, err := time.Parse(s.dateLayout, rec[0])
		if err != nil {
			return fmt.Errorf("factors row %d: bad date %q: %w", line, rec[0], err)
		}
		dates = append(dates, d)
		for i, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf("factors row %d, column %s: %w", line, names[i], err)
			}
			// published factor files quote percentages
			columns[names[i]] = append(columns[names[i]], v/100)
		}
	}

	s.loaded = &models.FactorSeries{Name: s.path, Dates: dates, Columns: columns}
	return nil
}
