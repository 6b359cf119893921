package usecase

import (
	"context"
	"fmt"
	"time"

	"Jyotish/internal/domain/models"
	drepo "Jyotish/internal/domain/repository"
	"Jyotish/pkg/config"
	"Jyotish/pkg/queue"
)

// RecordEventType is the queue message type consumed by RecordEventJob.
const RecordEventType = "calculation.record"

// EventRecorder routes calculation events to the configured backend: the Kafka
// publisher, or history storage either directly or through the Redis queue.
type EventRecorder struct {
	pub     drepo.EventPublisher
	store   drepo.HistoryStorage
	queue   queue.QueueService
	metrics drepo.Metrics
	backend string
}

// NewEventRecorder builds a recorder. pub is only required for the kafka backend;
// q, when non-nil, defers storage writes to RecordEventJob.
func NewEventRecorder(
	pub drepo.EventPublisher,
	store drepo.HistoryStorage,
	q queue.QueueService,
	metrics drepo.Metrics,
	backend string,
) *EventRecorder {
	return &EventRecorder{
		pub:     pub,
		store:   store,
		queue:   q,
		metrics: metrics,
		backend: backend,
	}
}

// Process delivers one event.
func (r *EventRecorder) Process(ctx context.Context, e *models.CalculationEvent) error {
	if e == nil {
		return fmt.Errorf("event is nil")
	}

	start := time.Now()
	var (
		err  error
		sink = r.backend
	)
	switch {
	case r.backend == config.BackendKafka:
		if r.pub == nil {
			err = fmt.Errorf("kafka backend without publisher")
			break
		}
		err = r.pub.Publish(ctx, e)
	case r.queue != nil:
		sink = "redis_queue"
		err = r.queue.PublishMessage(ctx, RecordEventType, e)
	case r.store != nil:
		err = r.store.Store(ctx, e)
	default:
		err = fmt.Errorf("no history sink for backend %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record_" + sink)
		return fmt.Errorf("record %s event: %w", e.Kind, err)
	}
	r.metrics.RecordEventPublished(sink, string(e.Kind))
	r.metrics.RecordCalculation("record", time.Since(start).Seconds())
	return nil
}

// History answers /api/history from storage.
func (r *EventRecorder) History(ctx context.Context, kind models.CalculationKind, limit int) ([]*models.CalculationEvent, error) {
	if r.store == nil {
		return nil, fmt.Errorf("history storage not configured")
	}
	return r.store.Query(ctx, kind, limit)
}

// Health checks the storage the recorder reads from.
func (r *EventRecorder) Health(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	return r.store.Health(ctx)
}

// Close closes the publisher and storage.
func (r *EventRecorder) Close() {
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
