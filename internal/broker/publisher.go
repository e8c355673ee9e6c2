package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

// Publisher delivers JSON-encoded events to a single topic.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the topic. The writer batches only
// briefly: the producer paces itself, so latency beats throughput here.
func (g *Gateway) NewPublisher(topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(g.addr),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Publish sends one event to the topic and waits for the broker ack.
func (p *Publisher) Publish(ctx context.Context, e *model.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("broker: encode event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Value: value}); err != nil {
		return fmt.Errorf("broker: publish: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
