package produce

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/snowpulse/internal/generate"
	"github.com/tinytelemetry/snowpulse/internal/journal"
	"github.com/tinytelemetry/snowpulse/internal/model"
)

type stubProbe struct {
	probeErr error
	topicErr error
	probes   int
}

func (s *stubProbe) Probe(context.Context) error {
	s.probes++
	return s.probeErr
}

func (s *stubProbe) EnsureTopic(context.Context, string) error { return s.topicErr }

type stubPublisher struct {
	err       error
	published []*model.Event
}

func (s *stubPublisher) Publish(_ context.Context, e *model.Event) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, e)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

type failingJournal struct{}

func (failingJournal) Append(*model.Event) error { return errors.New("disk gone") }
func (failingJournal) Close() error              { return nil }

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "live.jsonl"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestEmitJournalsAndPublishesWhenConnected(t *testing.T) {
	j := openJournal(t)
	pub := &stubPublisher{}
	p := New(generate.NewSeeded(1, nil), j, &stubProbe{}, pub, Config{Topic: "winter_activity"})

	if got := p.VerifyBroker(context.Background()); got != HealthConnected {
		t.Fatalf("VerifyBroker = %v, want connected", got)
	}

	e := generate.NewSeeded(2, nil).Next()
	out, err := p.Emit(context.Background(), e)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !out.Journaled || !out.Published {
		t.Fatalf("outcome = %+v, want journaled and published", out)
	}
	if len(pub.published) != 1 || pub.published[0].Message != e.Message {
		t.Fatalf("published = %v", pub.published)
	}

	n, err := j.Len()
	if err != nil {
		t.Fatalf("journal Len: %v", err)
	}
	if n != 1 {
		t.Fatalf("journal entries = %d, want 1", n)
	}
}

func TestEmitSurvivesPublishFailure(t *testing.T) {
	j := openJournal(t)
	pub := &stubPublisher{err: errors.New("broker down")}
	p := New(generate.NewSeeded(1, nil), j, &stubProbe{}, pub, Config{Topic: "winter_activity"})
	p.VerifyBroker(context.Background())

	out, err := p.Emit(context.Background(), generate.NewSeeded(3, nil).Next())
	if err != nil {
		t.Fatalf("Emit returned error on publish failure: %v", err)
	}
	if !out.Journaled || out.Published {
		t.Fatalf("outcome = %+v, want journaled only", out)
	}
	if p.Health() != HealthDegraded {
		t.Fatalf("health = %v, want degraded", p.Health())
	}

	// Degraded emits skip the publisher entirely.
	pub.err = nil
	out, err = p.Emit(context.Background(), generate.NewSeeded(4, nil).Next())
	if err != nil {
		t.Fatalf("Emit while degraded: %v", err)
	}
	if out.Published {
		t.Fatal("degraded emit still published")
	}
	if len(pub.published) != 0 {
		t.Fatalf("publisher received %d events while degraded", len(pub.published))
	}
}

func TestVerifyBrokerDegradesOnProbeFailure(t *testing.T) {
	j := openJournal(t)
	probe := &stubProbe{probeErr: errors.New("unreachable")}
	p := New(generate.NewSeeded(1, nil), j, probe, &stubPublisher{}, Config{Topic: "winter_activity"})

	if got := p.VerifyBroker(context.Background()); got != HealthDegraded {
		t.Fatalf("VerifyBroker = %v, want degraded", got)
	}
}

func TestVerifyBrokerDegradesOnTopicFailure(t *testing.T) {
	j := openJournal(t)
	probe := &stubProbe{topicErr: errors.New("authorization failed")}
	p := New(generate.NewSeeded(1, nil), j, probe, &stubPublisher{}, Config{Topic: "winter_activity"})

	if got := p.VerifyBroker(context.Background()); got != HealthDegraded {
		t.Fatalf("VerifyBroker = %v, want degraded", got)
	}
}

func TestEmitJournalFailureIsFatal(t *testing.T) {
	p := New(generate.NewSeeded(1, nil), failingJournal{}, &stubProbe{}, &stubPublisher{}, Config{Topic: "winter_activity"})
	p.VerifyBroker(context.Background())

	if _, err := p.Emit(context.Background(), generate.NewSeeded(5, nil).Next()); err == nil {
		t.Fatal("Emit succeeded despite journal failure")
	}
}

func TestRunEmitsUntilCancelled(t *testing.T) {
	j := openJournal(t)
	probe := &stubProbe{probeErr: errors.New("unreachable")}
	p := New(generate.NewSeeded(9, nil), j, probe, &stubPublisher{}, Config{
		Topic:    "winter_activity",
		Interval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n, err := j.Len()
	if err != nil {
		t.Fatalf("journal Len: %v", err)
	}
	if n < 3 {
		t.Fatalf("journal entries = %d, want several despite broker being down", n)
	}
	if p.Emitted() != int64(n) {
		t.Errorf("Emitted = %d, journal has %d", p.Emitted(), n)
	}
}

func TestDegradedRunReprobesAtCadence(t *testing.T) {
	j := openJournal(t)
	probe := &stubProbe{probeErr: errors.New("unreachable")}
	p := New(generate.NewSeeded(9, nil), j, probe, &stubPublisher{}, Config{
		Topic:      "winter_activity",
		Interval:   time.Millisecond,
		ProbeEvery: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if probe.probes < 2 {
		t.Fatalf("probes = %d, want re-probes while degraded", probe.probes)
	}
}
