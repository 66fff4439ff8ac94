package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"EventPull/internal/domain/models"
	"EventPull/internal/eventstudy"
	applogger "EventPull/pkg/logger"
)

type failingSource struct{}

func (failingSource) GetReturns(ctx context.Context, ticker string, from, to time.Time) (models.ReturnSeries, error) {
	return models.ReturnSeries{}, fmt.Errorf("ticker %s not in returns file", ticker)
}

func (failingSource) Close() error { return nil }

func TestRunSingleMapsFetchFailure(t *testing.T) {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	m := &stubMetrics{}
	runner := NewStudyRunner(
		eventstudy.NewEngine(0),
		failingSource{},
		nil,
		NewResultRouter(nil, nil, m, ""),
		m,
		l,
	)

	spec := models.EventSpec{
		Security:       "MISSING",
		EventDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Window:         models.EventWindow{Start: 0, End: 1},
		EstimationSize: 5,
		Model:          models.ModelConstantMean,
	}

	_, err = runner.RunSingle(context.Background(), spec)
	if eventstudy.KindOf(err) != eventstudy.KindInsufficientHistory {
		t.Fatalf("expected InsufficientHistory for a missing series, got %v", err)
	}
	if m.failed != 1 {
		t.Fatalf("expected 1 failure recorded, got %d", m.failed)
	}
}
