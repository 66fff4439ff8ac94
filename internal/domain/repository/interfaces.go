package repository

import (
	"context"
	"time"

	"EventPull/internal/domain/models"
)

// ReturnSource supplies fully materialized return series. A zero from/to
// means the source's whole available range.
type ReturnSource interface {
	GetReturns(ctx context.Context, ticker string, from, to time.Time) (models.ReturnSeries, error)
	Close() error
}

// FactorSource supplies factor series aligned to the trading calendar.
type FactorSource interface {
	GetFactors(ctx context.Context, model models.ModelKind, from, to time.Time) (models.FactorSeries, error)
	Close() error
}

// Publisher ships computed results to a message broker.
type Publisher interface {
	Publish(ctx context.Context, res *models.SingleEventResult) error
	PublishBatch(ctx context.Context, results []*models.SingleEventResult) error
	Close() error
}

// Storage persists computed results.
type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, res *models.SingleEventResult) error
	StoreBatch(ctx context.Context, results []*models.SingleEventResult) error
	Query(ctx context.Context, security string, from, to time.Time, limit int) ([]models.StoredResultRow, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records operational counters for studies and batches.
type Metrics interface {
	RecordStudyCompleted(backend, model string)
	RecordStudyFailed(kind string)
	RecordBatchSize(survivors, failures int)
	RecordLatency(op string, seconds float64)
}
