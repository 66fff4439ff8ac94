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
	applogger "EventPull/pkg/logger"
)

// CSVSource implements ReturnSource over one wide delimited file: the
// first column holds trading dates, every other column one ticker.
// Empty cells are treated as non-trading days for that ticker. The file
// is parsed once on first use and kept in memory.
type CSVSource struct {
	path       string
	dateLayout string
	isPrice    bool
	logReturns bool
	logger     *applogger.Logger

	mu     sync.Mutex
	series map[string]models.ReturnSeries
}

// NewCSVSource creates a CSV-backed return source. dateLayout defaults
// to 2006-01-02.
func NewCSVSource(path, dateLayout string, isPrice, logReturns bool, l *applogger.Logger) repository.ReturnSource {
	if dateLayout == "" {
		dateLayout = "2006-01-02"
	}
	return &CSVSource{
		path:       path,
		dateLayout: dateLayout,
		isPrice:    isPrice,
		logReturns: logReturns,
		logger:     l,
	}
}

// GetReturns returns the ticker's series clipped to [from, to]. Zero
// bounds are open.
func (s *CSVSource) GetReturns(ctx context.Context, ticker string, from, to time.Time) (models.ReturnSeries, error) {
	if err := s.load(); err != nil {
		return models.ReturnSeries{}, err
	}

	full, ok := s.series[ticker]
	if !ok {
		return models.ReturnSeries{}, fmt.Errorf("ticker %q not present in %s", ticker, s.path)
	}
	lo, hi := clipRange(full.Dates, from, to)
	return models.ReturnSeries{
		Ticker:  ticker,
		Dates:   full.Dates[lo:hi],
		Returns: full.Returns[lo:hi],
	}, nil
}

func (s *CSVSource) Close() error { return nil }

func (s *CSVSource) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.series != nil {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open returns file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read returns header: %w", err)
	}
	if len(header) < 2 {
		return fmt.Errorf("returns file %s needs a date column and at least one ticker", s.path)
	}
	tickers := header[1:]

	dates := make([][]time.Time, len(tickers))
	values := make([][]float64, len(tickers))

	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read returns row %d: %w", line, err)
		}
		line++

		d, err := time.Parse(s.dateLayout, rec[0])
		if err != nil {
			return fmt.Errorf("returns row %d: bad date %q: %w", line, rec[0], err)
		}
		for i, cell := range rec[1:] {
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return fmt.Errorf("returns row %d, column %s: %w", line, tickers[i], err)
			}
			dates[i] = append(dates[i], d)
			values[i] = append(values[i], v)
		}
	}

	s.series = make(map[string]models.ReturnSeries, len(tickers))
	for i, ticker := range tickers {
		ds, vs := dates[i], values[i]
		if s.isPrice {
			ds, vs = PriceToReturns(ds, vs, s.logReturns)
		}
		s.series[ticker] = models.ReturnSeries{Ticker: ticker, Dates: ds, Returns: vs}
	}

	if s.logger != nil {
		s.logger.Info("returns file loaded",
			applogger.String("path", s.path),
			applogger.Int("tickers", len(tickers)),
			applogger.Bool("from_prices", s.isPrice))
	}
	return nil
}
