// Package consume implements the sequential consumption loop: fetch one
// message, normalize it, fold it into the aggregate, persist it, repeat.
package consume

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/tinytelemetry/snowpulse/internal/aggregate"
	"github.com/tinytelemetry/snowpulse/internal/model"
)

// EventStream yields raw event payloads in broker delivery order.
type EventStream interface {
	Fetch(ctx context.Context) ([]byte, error)
	Close() error
}

// Sink is the idempotent persistence contract.
type Sink interface {
	Upsert(ctx context.Context, rec *model.Record) error
}

// Stats holds running counters for the loop's health surface.
type Stats struct {
	Processed int64 `json:"processed"`
	Malformed int64 `json:"malformed"`
	Failed    int64 `json:"persistence_failures"`
}

// Loop consumes the stream indefinitely. Processing is fully sequential:
// one record is normalized, aggregated, and persisted to completion before
// the next is read, so persistence and aggregation see broker delivery
// order for the subscription.
type Loop struct {
	stream EventStream
	sink   Sink
	agg    *aggregate.Aggregator

	processed atomic.Int64
	malformed atomic.Int64
	failed    atomic.Int64
}

// NewLoop assembles a consumption loop over the given stream, sink, and
// aggregator.
func NewLoop(stream EventStream, sink Sink, agg *aggregate.Aggregator) *Loop {
	return &Loop{stream: stream, sink: sink, agg: agg}
}

// Run consumes until ctx is cancelled or the stream ends. Per-record
// failures are logged and dropped, never fatal. Cancellation finishes the
// in-flight record, closes the subscription, and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stream.Close()

	for {
		raw, err := l.stream.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("consume: fetch: %w", err)
		}

		l.process(ctx, raw)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

func (l *Loop) process(ctx context.Context, raw []byte) {
	rec, err := model.Normalize(raw)
	if err != nil {
		l.malformed.Add(1)
		log.Printf("consume: dropping malformed record: %v", err)
		return
	}

	// Aggregation never fails; it must see the record even if persistence
	// later rejects it.
	l.agg.Update(rec)

	if err := l.sink.Upsert(ctx, rec); err != nil {
		l.failed.Add(1)
		log.Printf("consume: dropping record after persistence failure (author=%s ts=%s): %v",
			rec.Author, rec.Timestamp, err)
		return
	}
	l.processed.Add(1)
}

// Stats returns a copy of the running counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Processed: l.processed.Load(),
		Malformed: l.malformed.Load(),
		Failed:    l.failed.Load(),
	}
}
