package pipeline

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot is a point-in-time aggregate of render latency samples.
// Latency fields cover successful renders only.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Failed int     `json:"failed"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
}

// RenderStats tracks recent assemble latencies per output format within a
// rolling window.
type RenderStats struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
}

func NewRenderStats(maxAge time.Duration) *RenderStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &RenderStats{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
	}
}

// Record adds one render outcome for format.
func (s *RenderStats) Record(format string, d time.Duration, failed bool) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[format] = append(prune(s.samples[format], now.Add(-s.maxAge)), sample{
		timestamp:  now,
		durationMs: ms,
		failed:     failed,
	})
}

// Snapshot aggregates the window per format. Formats with no samples left
// are omitted.
func (s *RenderStats) Snapshot() map[string]StatsSnapshot {
	cutoff := time.Now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]StatsSnapshot, len(s.samples))
	for format, samples := range s.samples {
		samples = prune(samples, cutoff)
		s.samples[format] = samples
		if len(samples) == 0 {
			delete(s.samples, format)
			continue
		}
		out[format] = aggregate(samples)
	}
	return out
}

func aggregate(samples []sample) StatsSnapshot {
	snap := StatsSnapshot{Count: len(samples)}
	values := make([]int64, 0, len(samples))
	var sum int64
	for _, sm := range samples {
		if sm.failed {
			snap.Failed++
			continue
		}
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	if len(values) == 0 {
		return snap
	}
	slices.Sort(values)

	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	return snap
}

// prune drops samples older than cutoff in place.
func prune(samples []sample, cutoff time.Time) []sample {
	n := 0
	for _, sm := range samples {
		if !sm.timestamp.Before(cutoff) {
			samples[n] = sm
			n++
		}
	}
	return samples[:n]
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
