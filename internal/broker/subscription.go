package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Subscription reads raw event payloads from a topic as part of a consumer
// group. Delivery is at-least-once: duplicates and cross-partition
// reordering are possible and must be tolerated downstream.
type Subscription struct {
	reader *kafka.Reader
}

// Subscribe joins the consumer group on the topic, starting from the
// earliest uncommitted offset.
func (g *Gateway) Subscribe(topic, group string) (*Subscription, error) {
	if topic == "" {
		return nil, errors.New("broker: topic is empty")
	}
	if group == "" {
		return nil, errors.New("broker: consumer group is empty")
	}

	return &Subscription{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{g.addr},
			Topic:       topic,
			GroupID:     group,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		}),
	}, nil
}

// Fetch blocks until the next message is delivered or ctx ends, committing
// the offset on success. The returned payload is the raw message value.
func (s *Subscription) Fetch(ctx context.Context) ([]byte, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker: fetch: %w", err)
	}
	return msg.Value, nil
}

// Close leaves the consumer group and releases the reader.
func (s *Subscription) Close() error {
	return s.reader.Close()
}
