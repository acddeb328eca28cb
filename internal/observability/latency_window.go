package observability

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencyStats summarises the retained samples of one upstream call kind.
type LatencyStats struct {
	Upstream string  `json:"upstream"`
	Samples  int     `json:"samples"`
	LastMS   float64 `json:"last_ms"`
	AvgMS    float64 `json:"avg_ms"`
	P50MS    float64 `json:"p50_ms"`
	P95MS    float64 `json:"p95_ms"`
	MaxMS    float64 `json:"max_ms"`
	Failures int     `json:"failures"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	WindowSize  int            `json:"window_size"`
	Upstreams   []LatencyStats `json:"upstreams"`
}

// latencyWindow keeps the most recent samples per upstream in fixed ring buffers.
type latencyWindow struct {
	mu         sync.Mutex
	maxSamples int
	rings      map[string]*latencyRing
}

type latencyRing struct {
	values []float64
	failed []bool
	next   int
	filled bool
	last   float64
}

func newLatencyWindow(maxSamples int) *latencyWindow {
	if maxSamples <= 0 {
		maxSamples = 256
	}
	return &latencyWindow{
		maxSamples: maxSamples,
		rings:      make(map[string]*latencyRing),
	}
}

func (w *latencyWindow) Observe(upstream string, d time.Duration, failed bool) {
	if upstream == "" || d < 0 {
		return
	}
	ms := float64(d.Microseconds()) / 1000
	w.mu.Lock()
	defer w.mu.Unlock()

	ring, ok := w.rings[upstream]
	if !ok {
		ring = &latencyRing{
			values: make([]float64, w.maxSamples),
			failed: make([]bool, w.maxSamples),
		}
		w.rings[upstream] = ring
	}
	ring.values[ring.next] = ms
	ring.failed[ring.next] = failed
	ring.last = ms
	ring.next++
	if ring.next == len(ring.values) {
		ring.next = 0
		ring.filled = true
	}
}

func (w *latencyWindow) Snapshot() LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	names := make([]string, 0, len(w.rings))
	for name := range w.rings {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]LatencyStats, 0, len(names))
	for _, name := range names {
		ring := w.rings[name]
		n := ring.next
		if ring.filled {
			n = len(ring.values)
		}
		if n == 0 {
			continue
		}
		samples := append([]float64(nil), ring.values[:n]...)
		sort.Float64s(samples)

		sum := 0.0
		for _, v := range samples {
			sum += v
		}
		failures := 0
		for _, f := range ring.failed[:n] {
			if f {
				failures++
			}
		}
		out = append(out, LatencyStats{
			Upstream: name,
			Samples:  n,
			LastMS:   round2(ring.last),
			AvgMS:    round2(sum / float64(n)),
			P50MS:    round2(quantile(samples, 0.50)),
			P95MS:    round2(quantile(samples, 0.95)),
			MaxMS:    round2(samples[n-1]),
			Failures: failures,
		})
	}
	return LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.maxSamples,
		Upstreams:   out,
	}
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := q * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
