package service

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers domain events to the notification collaborator.
// Delivery failures never fail the business operation that emitted them.
type Publisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

// KafkaPublisher writes events to the pos-events topic. Keys follow the
// "<entity>.<event>.<id>" convention so consumers can route on prefix.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}

	return p.writer.WriteMessages(ctx, msg)
}
