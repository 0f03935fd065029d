// ════════════════════════════════════════════════════════════════════════════════════════════════
// Latency Statistics Aggregator
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Market-Data Latency Measurement Pipeline
// Component: Lock-Free Running Statistics & Bounded Sample Window
//
// Description:
//   Streaming aggregation of per-event latency: count, sum, min/max via atomic
//   compare-and-swap, sequence gap and reordering detection, and a bounded FIFO
//   sample window feeding percentile and jitter estimation. The producer-side
//   update never blocks on I/O and never takes a lock on the counters; only the
//   sample window has a mutual-exclusion region, held for a single push/evict.
//
// Threading model:
//   - Exactly one producer calls Update at message rate
//   - Any number of readers call Snapshot concurrently with the producer
//   - The CAS retry form for min/max is kept even though a single producer
//     cannot race: the primitive stays correct if producers are ever added
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package stats

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// AGGREGATOR STATE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Aggregator owns the running counters and the recent-sample window.
// One instance per run, created before the hot loop starts and shared by
// reference: the pipeline mutates, reporters only snapshot.
type Aggregator struct {
	// Hot counters — mutated by the producer via atomic ops, read-only
	// snapshotted by reporters. Never guarded by a lock.
	count uint64 // total accepted events
	sumUs int64  // accumulated latency, microseconds
	minUs int64  // sentineled to MaxInt64 until the first sample
	maxUs int64  // sentineled to MinInt64 until the first sample

	// Sequence validation state. lastEventID is producer-private; the two
	// counters are atomically published for concurrent readers.
	lastEventID uint64
	gapCount    uint64
	outOfOrder  uint64

	// Recent-sample window: bounded FIFO over the last `capacity` latencies.
	// The only mutual exclusion in the aggregator; held per push/evict and
	// for the copy-out in Snapshot, never across a sort.
	mu       sync.Mutex
	window   []int64
	head     int
	filled   int
	capacity int

	startTime time.Time
}

// Snapshot is a consistent read of aggregate state, safe to take while the
// producer keeps updating. Percentiles and jitter derive from the bounded
// window only and are estimates, not exact stream statistics.
type Snapshot struct {
	Count        uint64  `json:"count"`
	MeanUs       float64 `json:"mean_us"`
	MinUs        int64   `json:"min_us"`
	MaxUs        int64   `json:"max_us"`
	P50Us        int64   `json:"p50_us"`
	P95Us        int64   `json:"p95_us"`
	P99Us        int64   `json:"p99_us"`
	JitterUs     float64 `json:"jitter_us"`
	GapCount     uint64  `json:"gap_count"`
	OutOfOrder   uint64  `json:"out_of_order"`
	WindowLen    int     `json:"window_len"`
	EventsPerSec float64 `json:"events_per_sec"`
}

// New constructs an aggregator with the given window capacity.
// Capacity bounds percentile memory; it is an accuracy trade-off, not a
// correctness knob. Non-positive capacities fall back to a single slot.
func New(windowCapacity int) *Aggregator {
	if windowCapacity < 1 {
		windowCapacity = 1
	}
	return &Aggregator{
		minUs:     math.MaxInt64,
		maxUs:     math.MinInt64,
		window:    make([]int64, windowCapacity),
		capacity:  windowCapacity,
		startTime: time.Now(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PRODUCER PATH
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Update folds one measured event into the aggregate. Called by the single
// hot-path producer at message rate; performs no I/O and no unbounded work.
//
//go:nosplit
func (a *Aggregator) Update(eventID uint64, latencyUs int64) {
	// (a) count + sum, single atomic add each
	atomic.AddUint64(&a.count, 1)
	atomic.AddInt64(&a.sumUs, latencyUs)

	// (b) min via compare-and-retry: write only when strictly smaller,
	// retry if a concurrent writer raced ahead
	for {
		cur := atomic.LoadInt64(&a.minUs)
		if latencyUs >= cur || atomic.CompareAndSwapInt64(&a.minUs, cur, latencyUs) {
			break
		}
	}

	// (c) symmetric max update
	for {
		cur := atomic.LoadInt64(&a.maxUs)
		if latencyUs <= cur || atomic.CompareAndSwapInt64(&a.maxUs, cur, latencyUs) {
			break
		}
	}

	// (d) sequence validation against the previous id. Assumes the source
	// assigns ids monotonically with no reuse; a source-side sequence reset
	// shows up here as a spurious gap or reorder burst.
	if prev := a.lastEventID; prev != 0 {
		switch {
		case eventID < prev:
			atomic.AddUint64(&a.outOfOrder, 1)
		case eventID > prev+1:
			atomic.AddUint64(&a.gapCount, eventID-prev-1)
		}
	}
	if eventID > a.lastEventID {
		a.lastEventID = eventID
	}

	// (e) window push, evicting the oldest once full. The critical section
	// is a single store plus two index updates.
	a.mu.Lock()
	a.window[a.head] = latencyUs
	a.head++
	if a.head == a.capacity {
		a.head = 0
	}
	if a.filled < a.capacity {
		a.filled++
	}
	a.mu.Unlock()
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// READER PATH
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Snapshot computes the current aggregate view. Callable concurrently with
// Update; the window is copied under its mutex, then sorted outside it.
func (a *Aggregator) Snapshot() Snapshot {
	snap := Snapshot{
		Count:      atomic.LoadUint64(&a.count),
		MinUs:      atomic.LoadInt64(&a.minUs),
		MaxUs:      atomic.LoadInt64(&a.maxUs),
		GapCount:   atomic.LoadUint64(&a.gapCount),
		OutOfOrder: atomic.LoadUint64(&a.outOfOrder),
	}

	if snap.Count > 0 {
		snap.MeanUs = float64(atomic.LoadInt64(&a.sumUs)) / float64(snap.Count)
	}

	// The count add and the first min/max writes are separate atomics, so a
	// reader can land between them and see the count at 1 with a bound still
	// unwritten. Sentinels read as the empty state either way.
	if snap.MinUs == math.MaxInt64 {
		snap.MinUs = 0
	}
	if snap.MaxUs == math.MinInt64 {
		snap.MaxUs = 0
	}

	if elapsed := time.Since(a.startTime).Seconds(); elapsed > 0 {
		snap.EventsPerSec = float64(snap.Count) / elapsed
	}

	// Copy out the window under the lock, sort the copy outside it
	a.mu.Lock()
	samples := make([]int64, a.filled)
	if a.filled < a.capacity {
		copy(samples, a.window[:a.filled])
	} else {
		n := copy(samples, a.window[a.head:])
		copy(samples[n:], a.window[:a.head])
	}
	a.mu.Unlock()

	snap.WindowLen = len(samples)
	if len(samples) == 0 {
		return snap
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	snap.P50Us = percentile(samples, 0.50)
	snap.P95Us = percentile(samples, 0.95)
	snap.P99Us = percentile(samples, 0.99)
	snap.JitterUs = sampleStddev(samples)
	return snap
}

// WindowContents returns the window values oldest-first. Test and
// diagnostic use; takes the same short lock as Update.
func (a *Aggregator) WindowContents() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int64, a.filled)
	if a.filled < a.capacity {
		copy(out, a.window[:a.filled])
	} else {
		n := copy(out, a.window[a.head:])
		copy(out[n:], a.window[:a.head])
	}
	return out
}

// percentile selects index ⌊len×p⌋ from a sorted slice, clamped to the last
// valid index so small windows never index out of bounds.
func percentile(sorted []int64, p float64) int64 {
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// sampleStddev is the jitter figure: sample standard deviation of the
// window. One-pass mean then squared-deviation accumulation; the window is
// small and already snapshotted, so clarity wins over a fused pass.
func sampleStddev(samples []int64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += float64(v)
	}
	mean := sum / float64(len(samples))

	var sq float64
	for _, v := range samples {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(samples)-1))
}
