package usecase

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"EventPull/internal/domain/models"
	"EventPull/internal/eventstudy"
)

func templateSpec() models.EventSpec {
	return models.EventSpec{
		Window:         models.EventWindow{Start: -2, End: 2},
		EstimationSize: 200,
		BufferSize:     30,
		Model:          models.ModelMarket,
		Market:         "SPY",
	}
}

func TestLoaderFromRecords(t *testing.T) {
	records := []map[string]string{
		{"security_ticker": "AAPL", "event_date": "2024-03-01"},
		{"security_ticker": "MSFT", "event_date": "2024-04-15", "market_ticker": "QQQ", "model": "constant_mean"},
	}

	specs, errs := NewLoader("").FromRecords(records, templateSpec())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	if specs[0].Market != "SPY" {
		t.Fatalf("template market not applied: %q", specs[0].Market)
	}
	if specs[1].Market != "QQQ" || specs[1].Model != models.ModelConstantMean {
		t.Fatalf("row overrides not applied: %+v", specs[1])
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !specs[0].EventDate.Equal(want) {
		t.Fatalf("event date %v, want %v", specs[0].EventDate, want)
	}
}

func TestLoaderMalformedRows(t *testing.T) {
	records := []map[string]string{
		{"security_ticker": "AAPL", "event_date": "not-a-date"},
		{"event_date": "2024-03-01"},
		{"security_ticker": "TSLA", "event_date": "2024-03-01", "model": "garch"},
		{"security_ticker": "NVDA", "event_date": "2024-03-01"},
	}

	specs, errs := NewLoader("").FromRecords(records, templateSpec())
	if len(specs) != 1 {
		t.Fatalf("specs = %d, want 1", len(specs))
	}
	if len(errs) != 3 {
		t.Fatalf("errors = %d, want 3", len(errs))
	}
	for _, e := range errs {
		if e.Kind != string(eventstudy.KindMalformedInput) {
			t.Fatalf("kind = %q, want MalformedInput", e.Kind)
		}
	}
}

func TestLoaderFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	content := "security_ticker,market_ticker,event_date\n" +
		"AAPL,SPY,2024-03-01\n" +
		"MSFT,,2024-04-15\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	specs, errs, err := NewLoader("").FromCSV(path, templateSpec())
	if err != nil {
		t.Fatalf("from csv: %v", err)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	if specs[1].Market != "SPY" {
		t.Fatalf("empty market cell should fall back to template, got %q", specs[1].Market)
	}
}

func TestLoaderCustomDateLayout(t *testing.T) {
	records := []map[string]string{
		{"security_ticker": "AAPL", "event_date": "01/03/2024"},
	}
	specs, errs := NewLoader("02/01/2006").FromRecords(records, templateSpec())
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !specs[0].EventDate.Equal(want) {
		t.Fatalf("event date %v, want %v", specs[0].EventDate, want)
	}
}
