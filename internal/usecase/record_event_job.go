package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
	mid "Jyotish/internal/middleware"
	"Jyotish/pkg/queue"
)

// RecordEventJob drains calculation.record messages from the Redis queue into storage.
type RecordEventJob struct {
	storage domrepo.HistoryStorage
	metrics domrepo.Metrics
}

func NewRecordEventJob(storage domrepo.HistoryStorage, metrics domrepo.Metrics) *RecordEventJob {
	return &RecordEventJob{storage: storage, metrics: metrics}
}

func (j *RecordEventJob) Name() string { return "record-calculation" }

func (j *RecordEventJob) Type() string { return RecordEventType }

func (j *RecordEventJob) Handle(ctx context.Context, payload json.RawMessage) error {
	e, err := queue.ParsePayload[models.CalculationEvent](payload)
	if err != nil {
		j.metrics.RecordError("queue_unmarshal")
		return err
	}
	if err := mid.ValidateEvent(e); err != nil {
		j.metrics.RecordError("queue_validate")
		return fmt.Errorf("invalid event: %w", err)
	}
	if err := j.storage.Store(ctx, e); err != nil {
		j.metrics.RecordError("queue_store")
		return err
	}
	j.metrics.RecordEventPublished("history", string(e.Kind))
	return nil
}

var _ queue.Job = (*RecordEventJob)(nil)
