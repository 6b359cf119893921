package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
	mid "Jyotish/internal/middleware"
	pkgkafka "Jyotish/pkg/kafka"
)

// KafkaCalculationHandler consumes calculation events and writes them to history storage.
type KafkaCalculationHandler struct {
	topic   string
	storage domrepo.HistoryStorage
	metrics domrepo.Metrics
}

func NewKafkaCalculationHandler(topic string, storage domrepo.HistoryStorage, metrics domrepo.Metrics) *KafkaCalculationHandler {
	return &KafkaCalculationHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaCalculationHandler) Topic() string { return h.topic }

func (h *KafkaCalculationHandler) Handle(ctx context.Context, b []byte) error {
	var e models.CalculationEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	start := time.Now()
	err := h.storage.Store(ctx, &e)
	h.metrics.RecordCalculation("history_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordEventPublished("history", string(e.Kind))
	return nil
}

// EventValidationHook rejects messages that do not decode to a valid calculation event
// before they reach the handler. Rejections are not retried.
func EventValidationHook() pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			var e models.CalculationEvent
			if err := json.Unmarshal(data, &e); err != nil {
				return ctx, km, data, &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
			}
			if err := mid.ValidateEvent(&e); err != nil {
				return ctx, km, data, &pkgkafka.HookError{Code: "ERR_VALIDATION", Err: err}
			}
			return ctx, km, data, nil
		},
	}
}

var _ pkgkafka.MessageHandler = (*KafkaCalculationHandler)(nil)
