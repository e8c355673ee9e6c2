// Package produce implements the durable dual-sink producer: every event
// reaches the local journal, and best-effort reaches the broker topic.
package produce

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

// HealthState tracks broker delivery health.
type HealthState int

const (
	// HealthUnknown is the startup state before the first probe.
	HealthUnknown HealthState = iota
	// HealthConnected means publishes are attempted.
	HealthConnected
	// HealthDegraded means journal-only delivery until a probe succeeds.
	HealthDegraded
)

func (s HealthState) String() string {
	switch s {
	case HealthConnected:
		return "connected"
	case HealthDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// DeliveryOutcome reports where a single event landed.
type DeliveryOutcome struct {
	Journaled bool
	Published bool
}

// EventSource yields the next event to emit.
type EventSource interface {
	Next() *model.Event
}

// Journal is the mandatory local sink.
type Journal interface {
	Append(e *model.Event) error
	Close() error
}

// BrokerProbe verifies broker reachability and provisions the topic.
type BrokerProbe interface {
	Probe(ctx context.Context) error
	EnsureTopic(ctx context.Context, topic string) error
}

// Publisher is the opportunistic broker sink.
type Publisher interface {
	Publish(ctx context.Context, e *model.Event) error
	Close() error
}

// Config holds producer tunables.
type Config struct {
	// Topic is the broker topic events are published to.
	Topic string
	// Interval is the fixed pause between emissions.
	Interval time.Duration
	// ProbeEvery is how many emissions to wait, while degraded, before
	// re-probing the broker.
	ProbeEvery int
}

// Producer emits paced events to the journal and, when healthy, the broker.
// It is single-goroutine: Run owns all state transitions.
type Producer struct {
	source  EventSource
	journal Journal
	probe   BrokerProbe
	pub     Publisher
	cfg     Config

	health     HealthState
	sinceProbe int
	emitted    int64
	published  int64
}

// New assembles a producer. probe and pub may be nil for journal-only use.
func New(source EventSource, journal Journal, probe BrokerProbe, pub Publisher, cfg Config) *Producer {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.ProbeEvery <= 0 {
		cfg.ProbeEvery = 30
	}
	return &Producer{
		source:  source,
		journal: journal,
		probe:   probe,
		pub:     pub,
		cfg:     cfg,
		health:  HealthUnknown,
	}
}

// VerifyBroker probes broker reachability and provisions the topic. Failure
// never escalates: the producer degrades to journal-only delivery.
func (p *Producer) VerifyBroker(ctx context.Context) HealthState {
	if p.probe == nil || p.pub == nil {
		p.health = HealthDegraded
		return p.health
	}
	if err := p.probe.Probe(ctx); err != nil {
		log.Printf("produce: broker probe failed, journal-only mode: %v", err)
		p.health = HealthDegraded
		return p.health
	}
	if err := p.probe.EnsureTopic(ctx, p.cfg.Topic); err != nil {
		log.Printf("produce: topic %q not available, journal-only mode: %v", p.cfg.Topic, err)
		p.health = HealthDegraded
		return p.health
	}
	if p.health != HealthConnected {
		log.Printf("produce: broker connected, topic %q ready", p.cfg.Topic)
	}
	p.health = HealthConnected
	return p.health
}

// Emit appends the event to the journal and, when connected, publishes it to
// the topic. The journal write is the floor guarantee: its failure is the
// only error. A failed publish degrades health and is absorbed.
func (p *Producer) Emit(ctx context.Context, e *model.Event) (DeliveryOutcome, error) {
	var out DeliveryOutcome

	if err := p.journal.Append(e); err != nil {
		return out, fmt.Errorf("produce: journal append: %w", err)
	}
	out.Journaled = true
	p.emitted++

	if p.health != HealthConnected || p.pub == nil {
		return out, nil
	}

	if err := p.pub.Publish(ctx, e); err != nil {
		log.Printf("produce: publish failed, degrading to journal-only: %v", err)
		p.health = HealthDegraded
		p.sinceProbe = 0
		return out, nil
	}
	out.Published = true
	p.published++
	return out, nil
}

// Run emits events at the configured interval until ctx is cancelled.
// The broker is verified before the first publish attempt, and re-probed
// every ProbeEvery emissions while degraded. Cancellation finishes the
// in-flight emission and returns nil; only a journal failure is an error.
func (p *Producer) Run(ctx context.Context) error {
	if p.health == HealthUnknown {
		p.VerifyBroker(ctx)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		e := p.source.Next()
		if _, err := p.Emit(ctx, e); err != nil {
			return err
		}
		p.maybeReprobe(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Producer) maybeReprobe(ctx context.Context) {
	if p.health != HealthDegraded || p.probe == nil || p.pub == nil {
		return
	}
	p.sinceProbe++
	if p.sinceProbe < p.cfg.ProbeEvery {
		return
	}
	p.sinceProbe = 0
	p.VerifyBroker(ctx)
}

// Health returns the current broker health state.
func (p *Producer) Health() HealthState {
	return p.health
}

// Emitted returns how many events reached the journal.
func (p *Producer) Emitted() int64 {
	return p.emitted
}

// Published returns how many events reached the broker.
func (p *Producer) Published() int64 {
	return p.published
}

// Close releases the publisher and the journal, in that delivery order.
func (p *Producer) Close() error {
	var errs []error
	if p.pub != nil {
		if err := p.pub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("produce: close publisher: %w", err))
		}
	}
	if err := p.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("produce: close journal: %w", err))
	}
	return errors.Join(errs...)
}
