package pipeline

import (
	"math"
	"slices"
	"sync"
	"time"
)

type renderSample struct {
	at       time.Time
	duration time.Duration
}

// StatsSnapshot aggregates the render latencies inside the window. Renders
// usually finish well under a millisecond, so values are in microseconds.
type StatsSnapshot struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"-"`
	MinUs  float64       `json:"min_us"`
	MaxUs  float64       `json:"max_us"`
	AvgUs  float64       `json:"avg_us"`
	P50Us  float64       `json:"p50_us"`
	P95Us  float64       `json:"p95_us"`
	P99Us  float64       `json:"p99_us"`
}

// RenderStats keeps render durations for a rolling window.
type RenderStats struct {
	mu      sync.Mutex
	samples []renderSample
	window  time.Duration
}

func NewRenderStats(window time.Duration) *RenderStats {
	if window <= 0 {
		window = time.Hour
	}
	return &RenderStats{
		samples: make([]renderSample, 0, 256),
		window:  window,
	}
}

// Record adds one render duration. Negative durations count as zero.
func (s *RenderStats) Record(d time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.samples = append(s.samples, renderSample{at: now, duration: max(d, 0)})
}

func (s *RenderStats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	s.pruneLocked(now)
	durations := make([]time.Duration, len(s.samples))
	for i, sm := range s.samples {
		durations[i] = sm.duration
	}
	s.mu.Unlock()

	snap := StatsSnapshot{Count: len(durations), Window: s.window}
	if len(durations) == 0 {
		return snap
	}

	slices.Sort(durations)
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}
	snap.MinUs = micros(durations[0])
	snap.MaxUs = micros(durations[len(durations)-1])
	snap.AvgUs = micros(sum) / float64(len(durations))
	snap.P50Us = micros(percentile(durations, 50))
	snap.P95Us = micros(percentile(durations, 95))
	snap.P99Us = micros(percentile(durations, 99))
	return snap
}

// pruneLocked drops samples older than the window. Samples are appended in
// time order, so the expired ones form a prefix.
func (s *RenderStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// percentile interpolates linearly between the two nearest ranks of sorted.
func percentile(sorted []time.Duration, pct float64) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return sorted[0]
	case pct >= 100:
		return sorted[len(sorted)-1]
	}

	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	lo, hi := sorted[lower], sorted[lower+1]
	return lo + time.Duration(math.Round(float64(hi-lo)*(rank-float64(lower))))
}
