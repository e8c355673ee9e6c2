// Package aggregate maintains running sentiment statistics per category.
package aggregate

import (
	"sync"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

type entry struct {
	count int64
	sum   float64
}

// Aggregator accumulates count and sentiment sum per category. Update is
// called only by the consumption loop; Snapshot and Counts may be called
// from any goroutine and return independent copies, never the live map.
// Entries are never removed during a run.
type Aggregator struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{entries: make(map[string]*entry)}
}

// Update folds one record into the running statistics for its category.
func (a *Aggregator) Update(rec *model.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e := a.entries[rec.Category]
	if e == nil {
		e = &entry{}
		a.entries[rec.Category] = e
	}
	e.count++
	e.sum += rec.Sentiment
}

// Snapshot returns category -> average sentiment for every category seen so
// far. A category with no updates has no entry.
func (a *Aggregator) Snapshot() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]float64, len(a.entries))
	for category, e := range a.entries {
		out[category] = e.sum / float64(e.count)
	}
	return out
}

// Counts returns category -> number of observations.
func (a *Aggregator) Counts() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]int64, len(a.entries))
	for category, e := range a.entries {
		out[category] = e.count
	}
	return out
}
