package usecase

import (
	"context"
	"fmt"
	"time"

	"EventPull/internal/domain/models"
	drepo "EventPull/internal/domain/repository"
)

// ResultRouter delivers computed results to the configured backend.
type ResultRouter struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
}

// NewResultRouter creates a new ResultRouter instance. An empty backend
// disables delivery; results are only returned to the caller.
func NewResultRouter(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
) *ResultRouter {
	return &ResultRouter{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
	}
}

// Deliver routes a single result to the configured backend.
func (r *ResultRouter) Deliver(ctx context.Context, res *models.SingleEventResult) error {
	if res == nil {
		return fmt.Errorf("result is nil")
	}
	if r.backend == "" {
		return nil
	}

	start := time.Now()
	var err error

	switch r.backend {
	case "kafka":
		err = r.pub.Publish(ctx, res)
	case "clickhouse":
		err = r.store.Store(ctx, res)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordStudyFailed("deliver")
		return fmt.Errorf("deliver result: %w", err)
	}

	r.metrics.RecordStudyCompleted(r.backend, string(res.Spec.Model))
	r.metrics.RecordLatency("deliver", time.Since(start).Seconds())

	return nil
}

// DeliverBatch routes a batch of results to the configured backend.
func (r *ResultRouter) DeliverBatch(ctx context.Context, results []*models.SingleEventResult) error {
	if len(results) == 0 || r.backend == "" {
		return nil
	}

	start := time.Now()
	var err error

	switch r.backend {
	case "kafka":
		err = r.pub.PublishBatch(ctx, results)
	case "clickhouse":
		err = r.store.StoreBatch(ctx, results)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordStudyFailed("deliver_batch")
		return fmt.Errorf("deliver batch: %w", err)
	}

	for _, res := range results {
		r.metrics.RecordStudyCompleted(r.backend, string(res.Spec.Model))
	}
	r.metrics.RecordLatency("deliver_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (r *ResultRouter) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
