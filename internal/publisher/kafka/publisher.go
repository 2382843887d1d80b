// Package kafka publishes run notifications to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per notification.
type Publisher struct {
	writer messageWriter
	now    func() time.Time
}

// New creates a synchronous Publisher for topic on brokers.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("publisher.kafka_brokers is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("publisher.topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return newWithWriter(writer), nil
}

func newWithWriter(w messageWriter) *Publisher {
	return &Publisher{writer: w, now: time.Now}
}

// Publish marshals payload to JSON and writes it keyed by subject, so all
// notifications of one kind land on the same partition.
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	at := p.now()
	msg := kafka.Message{
		Key:   []byte(subject),
		Value: data,
		Time:  at,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return "", fmt.Errorf("write kafka message: %w", err)
	}
	return fmt.Sprintf("%s@%d", subject, at.UnixNano()), nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
