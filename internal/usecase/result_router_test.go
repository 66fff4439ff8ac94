package usecase

import (
	"context"
	"testing"
	"time"

	"EventPull/internal/domain/models"
)

type stubPublisher struct {
	published int
}

func (s *stubPublisher) Publish(ctx context.Context, res *models.SingleEventResult) error {
	s.published++
	return nil
}

func (s *stubPublisher) PublishBatch(ctx context.Context, results []*models.SingleEventResult) error {
	s.published += len(results)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

type stubStorage struct {
	stored int
}

func (s *stubStorage) Init(ctx context.Context) error { return nil }

func (s *stubStorage) Store(ctx context.Context, res *models.SingleEventResult) error {
	s.stored++
	return nil
}

func (s *stubStorage) StoreBatch(ctx context.Context, results []*models.SingleEventResult) error {
	s.stored += len(results)
	return nil
}

func (s *stubStorage) Query(ctx context.Context, security string, from, to time.Time, limit int) ([]models.StoredResultRow, error) {
	return nil, nil
}

func (s *stubStorage) Health(ctx context.Context) error { return nil }
func (s *stubStorage) Close() error                     { return nil }

type stubMetrics struct {
	completed int
	failed    int
}

func (m *stubMetrics) RecordStudyCompleted(backend, model string) { m.completed++ }
func (m *stubMetrics) RecordStudyFailed(kind string)              { m.failed++ }
func (m *stubMetrics) RecordBatchSize(survivors, failures int)    {}
func (m *stubMetrics) RecordLatency(op string, seconds float64)   {}

func sampleResult() *models.SingleEventResult {
	return &models.SingleEventResult{
		Spec: models.EventSpec{
			Security:  "AAPL",
			EventDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Model:     models.ModelMarket,
		},
		Offsets: []int{0},
		AR:      []float64{0.01},
	}
}

func TestRouterDeliverKafka(t *testing.T) {
	pub := &stubPublisher{}
	store := &stubStorage{}
	m := &stubMetrics{}
	r := NewResultRouter(pub, store, m, "kafka")

	if err := r.Deliver(context.Background(), sampleResult()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if pub.published != 1 || store.stored != 0 {
		t.Fatalf("expected kafka delivery, got pub=%d store=%d", pub.published, store.stored)
	}
	if m.completed != 1 {
		t.Fatalf("expected 1 completed, got %d", m.completed)
	}
}

func TestRouterDeliverClickHouse(t *testing.T) {
	pub := &stubPublisher{}
	store := &stubStorage{}
	r := NewResultRouter(pub, store, &stubMetrics{}, "clickhouse")

	results := []*models.SingleEventResult{sampleResult(), sampleResult()}
	if err := r.DeliverBatch(context.Background(), results); err != nil {
		t.Fatalf("deliver batch: %v", err)
	}
	if store.stored != 2 || pub.published != 0 {
		t.Fatalf("expected clickhouse delivery, got pub=%d store=%d", pub.published, store.stored)
	}
}

func TestRouterNoBackend(t *testing.T) {
	r := NewResultRouter(nil, nil, &stubMetrics{}, "")
	if err := r.Deliver(context.Background(), sampleResult()); err != nil {
		t.Fatalf("expected no-op delivery, got %v", err)
	}
}

func TestRouterUnknownBackend(t *testing.T) {
	m := &stubMetrics{}
	r := NewResultRouter(&stubPublisher{}, &stubStorage{}, m, "postgres")
	if err := r.Deliver(context.Background(), sampleResult()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if m.failed != 1 {
		t.Fatalf("expected 1 failure recorded, got %d", m.failed)
	}
}
