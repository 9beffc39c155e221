package oracle

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	model      string
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates the oracle calls still inside the window.
type StatsSnapshot struct {
	Count    int            `json:"count"`
	Failures int            `json:"failures"`
	MinMs    int64          `json:"min_ms"`
	MaxMs    int64          `json:"max_ms"`
	AvgMs    float64        `json:"avg_ms"`
	P50Ms    float64        `json:"p50_ms"`
	P95Ms    float64        `json:"p95_ms"`
	P99Ms    float64        `json:"p99_ms"`
	ByModel  map[string]int `json:"by_model,omitempty"`
}

// LLMStats tracks recent oracle call latencies within a rolling window.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewLLMStats(maxAge time.Duration) *LLMStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LLMStats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one call. Failed calls count toward Failures but not latency.
func (s *LLMStats) Record(model string, durationMs int64, failed bool) {
	if durationMs < 0 {
		durationMs = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		model:      model,
		durationMs: durationMs,
		failed:     failed,
	})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{ByModel: make(map[string]int)}
	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		snap.ByModel[sm.model]++
		if sm.failed {
			snap.Failures++
			continue
		}
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	snap.Count = len(values)
	if len(values) == 0 {
		return snap
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// Instrumented wraps a Generator, timing every call into stats.
type Instrumented struct {
	next  Generator
	stats *LLMStats
	log   *slog.Logger
}

func Instrument(next Generator, stats *LLMStats, log *slog.Logger) *Instrumented {
	return &Instrumented{next: next, stats: stats, log: log}
}

func (g *Instrumented) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := g.next.Generate(ctx, req)
	elapsed := time.Since(start)
	g.stats.Record(req.Model, elapsed.Milliseconds(), err != nil)

	if err != nil {
		g.log.Warn("oracle call failed", "model", req.Model, "duration_ms", elapsed.Milliseconds(), "error", err)
		return "", err
	}
	g.log.Debug("oracle call", "model", req.Model, "duration_ms", elapsed.Milliseconds(), "output_bytes", len(out))
	return out, nil
}
