package usecase

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"EventPull/internal/domain/models"
	"EventPull/internal/eventstudy"
)

// Loader turns tabular batch input into event specs. Malformed rows
// become EventError entries instead of aborting the whole load, so the
// batch error policy can decide their fate.
type Loader struct {
	dateLayout string
}

// NewLoader creates a loader. dateLayout defaults to 2006-01-02.
func NewLoader(dateLayout string) *Loader {
	if dateLayout == "" {
		dateLayout = "2006-01-02"
	}
	return &Loader{dateLayout: dateLayout}
}

// FromCSV reads one spec per row. Column names match the spec field
// names: security_ticker and event_date are required, market_ticker and
// model optional. The template supplies window, sizes and the default
// model.
func (l *Loader) FromCSV(path string, template models.EventSpec) ([]models.EventSpec, []models.EventError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open batch file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read batch header: %w", err)
	}

	var records []map[string]string
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read batch row %d: %w", line, err)
		}
		line++

		m := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				m[name] = rec[i]
			}
		}
		records = append(records, m)
	}

	specs, errs := l.FromRecords(records, template)
	return specs, errs, nil
}

// FromRecords builds one spec per parameter mapping.
func (l *Loader) FromRecords(records []map[string]string, template models.EventSpec) ([]models.EventSpec, []models.EventError) {
	var specs []models.EventSpec
	var errs []models.EventError

	for i, rec := range records {
		spec, err := l.parseRecord(rec, template)
		if err != nil {
			label := rec["security_ticker"]
			if label == "" {
				label = fmt.Sprintf("row %d", i+1)
			}
			errs = append(errs, models.EventError{
				Event: label,
				Kind:  string(eventstudy.KindMalformedInput),
				Msg:   err.Error(),
			})
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errs
}

func (l *Loader) parseRecord(rec map[string]string, template models.EventSpec) (models.EventSpec, error) {
	spec := template

	spec.Security = rec["security_ticker"]
	if spec.Security == "" {
		return models.EventSpec{}, fmt.Errorf("security_ticker is required")
	}
	if v := rec["market_ticker"]; v != "" {
		spec.Market = v
	}

	raw := rec["event_date"]
	if raw == "" {
		return models.EventSpec{}, fmt.Errorf("event_date is required")
	}
	d, err := time.Parse(l.dateLayout, raw)
	if err != nil {
		return models.EventSpec{}, fmt.Errorf("event_date %q does not match layout %s", raw, l.dateLayout)
	}
	spec.EventDate = d

	if v := rec["model"]; v != "" {
		kind, err := models.ParseModelKind(v)
		if err != nil {
			return models.EventSpec{}, err
		}
		spec.Model = kind
	}
	if v := rec["estimation_size"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.EventSpec{}, fmt.Errorf("estimation_size %q is not an integer", v)
		}
		spec.EstimationSize = n
	}
	if v := rec["buffer_size"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return models.EventSpec{}, fmt.Errorf("buffer_size %q is not an integer", v)
		}
		spec.BufferSize = n
	}

	if err := spec.Validate(); err != nil {
		return models.EventSpec{}, err
	}
	return spec, nil
}
