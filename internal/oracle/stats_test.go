package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record("glm-4.5-air", ms, false)
	}

	snap := stats.Snapshot()
	if snap.Count != 5 {
		t.Fatalf("expected count=5, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
	if snap.ByModel["glm-4.5-air"] != 5 {
		t.Fatalf("expected 5 calls for model, got %v", snap.ByModel)
	}
}

func TestLLMStatsFailuresExcludedFromLatency(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record("a", 100, false)
	stats.Record("b", 9000, true)

	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Failures != 1 {
		t.Fatalf("expected count=1 failures=1, got %+v", snap)
	}
	if snap.MaxMs != 100 {
		t.Fatalf("failed call leaked into latency: max=%d", snap.MaxMs)
	}
	if snap.ByModel["b"] != 1 {
		t.Fatalf("expected failed model counted, got %v", snap.ByModel)
	}
}

func TestLLMStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats.now = func() time.Time { return now }
	stats.Record("a", 100, false)

	now = now.Add(11 * time.Minute)
	if snap := stats.Snapshot(); snap.Count != 0 {
		t.Fatalf("expected count=0 after prune, got %d", snap.Count)
	}

	stats.Record("a", 200, false)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 200 {
		t.Fatalf("expected single fresh sample, got %+v", snap)
	}
}

func TestLLMStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record("a", -10, false)
	snap := stats.Snapshot()
	if snap.Count != 1 || snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got %+v", snap)
	}
}

type stubGenerator struct {
	out string
	err error
}

func (s stubGenerator) Generate(context.Context, Request) (string, error) {
	return s.out, s.err
}

func TestInstrumentedRecordsCalls(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := Instrument(stubGenerator{out: "<!DOCTYPE html>"}, stats, log)
	if out, err := ok.Generate(context.Background(), Request{Model: "m"}); err != nil || out != "<!DOCTYPE html>" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}

	boom := errors.New("boom")
	bad := Instrument(stubGenerator{err: boom}, stats, log)
	if _, err := bad.Generate(context.Background(), Request{Model: "m"}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	snap := stats.Snapshot()
	if snap.Count != 1 || snap.Failures != 1 || snap.ByModel["m"] != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
