package eventstudy

import (
	"testing"
	"time"

	"EventPull/internal/domain/models"
)

func tradingDays(start time.Time, n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

func TestResolveWindows(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := tradingDays(start, 20)

	spec := models.EventSpec{
		Security:       "AAPL",
		EventDate:      start.AddDate(0, 0, 12),
		Window:         models.EventWindow{Start: -2, End: 2},
		EstimationSize: 8,
		BufferSize:     2,
		Model:          models.ModelConstantMean,
	}

	w, err := Resolver{}.Resolve(dates, spec)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if w.EventStart != 10 || w.EventEnd != 15 {
		t.Fatalf("event window [%d,%d), want [10,15)", w.EventStart, w.EventEnd)
	}
	if w.EstStart != 0 || w.EstEnd != 8 {
		t.Fatalf("estimation window [%d,%d), want [0,8)", w.EstStart, w.EstEnd)
	}
	if w.EstimationSize() != spec.EstimationSize {
		t.Fatalf("estimation size %d, want %d", w.EstimationSize(), spec.EstimationSize)
	}
	if w.EventSize() != spec.Window.Size() {
		t.Fatalf("event size %d, want %d", w.EventSize(), spec.Window.Size())
	}
}

func TestResolveDateNotFound(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := tradingDays(start, 10)

	spec := models.EventSpec{
		Security:       "AAPL",
		EventDate:      start.AddDate(0, 0, 30),
		Window:         models.EventWindow{Start: 0, End: 0},
		EstimationSize: 5,
		Model:          models.ModelConstantMean,
	}

	_, err := Resolver{}.Resolve(dates, spec)
	if KindOf(err) != KindDateNotFound {
		t.Fatalf("expected DateNotFound, got %v", err)
	}
}

func TestResolveDateShiftFallback(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// a gap: day 10 is missing from the calendar
	dates := append(tradingDays(start, 10), start.AddDate(0, 0, 11), start.AddDate(0, 0, 12))

	spec := models.EventSpec{
		Security:       "AAPL",
		EventDate:      start.AddDate(0, 0, 10),
		Window:         models.EventWindow{Start: 0, End: 0},
		EstimationSize: 5,
		Model:          models.ModelConstantMean,
	}

	if _, err := (Resolver{}).Resolve(dates, spec); KindOf(err) != KindDateNotFound {
		t.Fatalf("expected DateNotFound without fallback, got %v", err)
	}

	w, err := Resolver{MaxDateShift: 3}.Resolve(dates, spec)
	if err != nil {
		t.Fatalf("resolve with fallback: %v", err)
	}
	if w.EventStart != 10 {
		t.Fatalf("event start %d, want 10 (next trading day)", w.EventStart)
	}
}

func TestResolveInsufficientHistory(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := tradingDays(start, 10)

	early := models.EventSpec{
		Security:       "AAPL",
		EventDate:      start.AddDate(0, 0, 3),
		Window:         models.EventWindow{Start: 0, End: 0},
		EstimationSize: 5,
		Model:          models.ModelConstantMean,
	}
	if _, err := (Resolver{}).Resolve(dates, early); KindOf(err) != KindInsufficientHistory {
		t.Fatalf("expected InsufficientHistory before series start, got %v", err)
	}

	late := models.EventSpec{
		Security:       "AAPL",
		EventDate:      start.AddDate(0, 0, 9),
		Window:         models.EventWindow{Start: 0, End: 3},
		EstimationSize: 5,
		Model:          models.ModelConstantMean,
	}
	if _, err := (Resolver{}).Resolve(dates, late); KindOf(err) != KindInsufficientHistory {
		t.Fatalf("expected InsufficientHistory past series end, got %v", err)
	}
}
