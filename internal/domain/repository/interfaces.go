package repository

import (
	"context"

	"Jyotish/internal/domain/models"
)

// EventPublisher ships calculation events to a downstream broker.
type EventPublisher interface {
	Publish(ctx context.Context, e *models.CalculationEvent) error
	PublishBatch(ctx context.Context, events []*models.CalculationEvent) error
	Close() error
}

// HistoryStorage persists calculation events and answers history queries.
type HistoryStorage interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, e *models.CalculationEvent) error
	StoreBatch(ctx context.Context, events []*models.CalculationEvent) error
	// Query returns the newest events first; an empty kind matches all kinds.
	Query(ctx context.Context, kind models.CalculationKind, limit int) ([]*models.CalculationEvent, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordCalculation(kind string, seconds float64)
	RecordEventPublished(backend, kind string)
	RecordError(kind string)
	RecordCache(cache string, hit bool)
}
