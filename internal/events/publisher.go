// Package events streams donation lifecycle transitions to Kafka so
// downstream consumers (notifications, analytics) can react without polling
// the database. Publishing is best-effort; the lifecycle never blocks on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type DonationEvent struct {
	Type       string    `json:"type"`
	DonationID string    `json:"donation_id"`
	PickupID   string    `json:"pickup_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event DonationEvent) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event DonationEvent) error {

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal donation event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DonationID),
		Value: value,
	})
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, DonationEvent) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }
