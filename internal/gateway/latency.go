package gateway

import (
	"math"
	"sort"
	"sync"
	"time"
)

const defaultLatencyWindow = 10000

// LatencyTracker samples end-to-end delivery latency (action timestamp to
// WS emit) over a sliding window of recent broadcasts. Safe for concurrent
// use; the hub observes on the broadcast path, /api/latency reads.
type LatencyTracker struct {
	mu     sync.Mutex
	window []float64 // milliseconds, ring ordered by arrival
	next   int
	filled bool
}

// LatencySummary is the percentile snapshot served by /api/latency.
type LatencySummary struct {
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
	Samples int     `json:"samples"`
}

// NewLatencyTracker creates a tracker over the last window broadcasts.
func NewLatencyTracker(window int) *LatencyTracker {
	if window <= 0 {
		window = defaultLatencyWindow
	}
	return &LatencyTracker{window: make([]float64, window)}
}

// Observe records one delivery latency. Negative samples (publisher clock
// ahead of the gateway's) are dropped rather than skewing the window.
func (t *LatencyTracker) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	ms := float64(d.Microseconds()) / 1000.0

	t.mu.Lock()
	t.window[t.next] = ms
	t.next++
	if t.next == len(t.window) {
		t.next = 0
		t.filled = true
	}
	t.mu.Unlock()
}

// Summary computes nearest-rank p50/p95/p99 over the current window.
// A tracker with no samples reports zeros.
func (t *LatencyTracker) Summary() LatencySummary {
	t.mu.Lock()
	n := t.next
	if t.filled {
		n = len(t.window)
	}
	if n == 0 {
		t.mu.Unlock()
		return LatencySummary{}
	}
	sorted := make([]float64, n)
	copy(sorted, t.window[:n])
	t.mu.Unlock()

	sort.Float64s(sorted)
	return LatencySummary{
		P50Ms:   nearestRank(sorted, 0.50),
		P95Ms:   nearestRank(sorted, 0.95),
		P99Ms:   nearestRank(sorted, 0.99),
		Samples: n,
	}
}

// nearestRank picks the ceil(p*n)-th smallest sample.
func nearestRank(sorted []float64, p float64) float64 {
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
