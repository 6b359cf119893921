package repository

import (
	"context"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
	pkgkafka "Jyotish/pkg/kafka"
)

// KafkaPublisher writes calculation events to one topic, keyed by kind so each
// engine's events stay ordered within a partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e *models.CalculationEvent) error {
	return p.PublishBatch(ctx, []*models.CalculationEvent{e})
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, events []*models.CalculationEvent) error {
	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		msgs = append(msgs, eventMessage(e))
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func eventMessage(e *models.CalculationEvent) pkgkafka.Message {
	return pkgkafka.Message{
		Key:   []byte(e.Kind),
		Value: e,
		Headers: map[string]string{
			"kind":     string(e.Kind),
			"event_id": e.ID,
		},
	}
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)
