// Package broker wraps the Kafka client behind the narrow surface the
// pipeline needs: reachability probes, idempotent topic provisioning, and
// single-topic publish/subscribe.
package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// Gateway provides connectivity to a single Kafka broker address.
type Gateway struct {
	addr string
}

// NewGateway creates a gateway for the given broker address (host:port).
func NewGateway(addr string) *Gateway {
	return &Gateway{addr: addr}
}

// Addr returns the configured broker address.
func (g *Gateway) Addr() string {
	return g.addr
}

// Probe verifies the broker is reachable and serving metadata. A non-nil
// error means the broker should be treated as unavailable, never as a
// reason to crash.
func (g *Gateway) Probe(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return fmt.Errorf("broker: dial %s: %w", g.addr, err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("broker: metadata from %s: %w", g.addr, err)
	}
	return nil
}

// EnsureTopic creates the topic with one partition if it does not exist.
// Creating an already-existing topic is a no-op success.
func (g *Gateway) EnsureTopic(ctx context.Context, topic string) error {
	if topic == "" {
		return errors.New("broker: topic is empty")
	}

	conn, err := kafka.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return fmt.Errorf("broker: dial %s: %w", g.addr, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("broker: controller lookup: %w", err)
	}

	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return fmt.Errorf("broker: dial controller %s: %w", ctrlAddr, err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("broker: create topic %q: %w", topic, err)
	}
	return nil
}

// TopicExists reports whether the topic is known to the broker.
func (g *Gateway) TopicExists(ctx context.Context, topic string) (bool, error) {
	conn, err := kafka.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		return false, fmt.Errorf("broker: dial %s: %w", g.addr, err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(topic)
	if err != nil {
		if errors.Is(err, kafka.UnknownTopicOrPartition) {
			return false, nil
		}
		return false, fmt.Errorf("broker: read partitions for %q: %w", topic, err)
	}
	return len(partitions) > 0, nil
}
