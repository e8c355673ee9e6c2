package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/tinytelemetry/snowpulse/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snowpulse.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(message, author, ts string, sentiment float64) *model.Record {
	return &model.Record{
		Message:          message,
		Author:           author,
		Timestamp:        ts,
		Category:         "winter sports",
		Sentiment:        sentiment,
		KeywordMentioned: "skating",
		MessageLength:    len(message),
		Season:           "Winter",
		AverageTemp:      "15°F",
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := record("I just tried ice skating in Minneapolis! It was cozy.", "Bob", "2025-01-29 14:35:20", 0.6)
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}

	// Same natural key, newer values.
	updated := *rec
	updated.Sentiment = 0.9
	updated.AverageTemp = "20°F"
	if err := s.Upsert(ctx, &updated); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	n, err := s.EventCount(ctx)
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1 after duplicate upsert", n)
	}

	recent, err := s.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent = %d rows", len(recent))
	}
	if recent[0].Sentiment != 0.9 || recent[0].AverageTemp != "20°F" {
		t.Errorf("row holds stale values: %+v", recent[0])
	}
}

func TestUpsertDistinctKeysAccumulate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, record("first", "Bob", "2025-01-29 14:35:20", 0.2)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, record("second", "Judy", "2025-01-29 14:35:25", 0.8)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	counts, err := s.CountByCategory(ctx)
	if err != nil {
		t.Fatalf("CountByCategory: %v", err)
	}
	if counts["winter sports"] != 2 {
		t.Fatalf("counts = %v", counts)
	}

	avgs, err := s.AverageSentimentByCategory(ctx)
	if err != nil {
		t.Fatalf("AverageSentimentByCategory: %v", err)
	}
	if math.Abs(avgs["winter sports"]-0.5) > 1e-9 {
		t.Errorf("average = %v, want 0.5", avgs["winter sports"])
	}
}

func TestOpenStartsFromFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snowpulse.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Upsert(context.Background(), record("stale", "Walter", "2025-01-29 09:00:00", 0.3)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	n, err := s2.EventCount(context.Background())
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d after reinit, want 0", n)
	}
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snowpulse.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("store file missing: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("Open accepted empty path")
	}
}
