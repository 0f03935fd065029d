package clockref

import (
	"testing"
	"time"
)

// TestAnchor_Monotonic validates that later ticks never convert to earlier
// epoch values
func TestAnchor_Monotonic(t *testing.T) {
	anchor := NewAnchor()

	prev := uint64(0)
	for i := 0; i < 10_000; i++ {
		us := anchor.EpochMicros(time.Now())
		if us < prev {
			t.Fatalf("iteration %d: converted %d < previous %d", i, us, prev)
		}
		prev = us
	}
}

// TestAnchor_TracksElapsed validates the arithmetic against a real sleep
func TestAnchor_TracksElapsed(t *testing.T) {
	anchor := NewAnchor()
	start := anchor.EpochMicros(time.Now())

	time.Sleep(50 * time.Millisecond)

	elapsed := anchor.EpochMicros(time.Now()) - start
	if elapsed < 45_000 {
		t.Errorf("elapsed %dµs, want ≥ 45000µs after 50ms sleep", elapsed)
	}
	if elapsed > 500_000 {
		t.Errorf("elapsed %dµs, want well under 500ms", elapsed)
	}
}

// TestAnchor_PreAnchorTickClamps validates the pre-anchor guard
func TestAnchor_PreAnchorTickClamps(t *testing.T) {
	before := time.Now()
	time.Sleep(time.Millisecond)
	anchor := NewAnchor()

	if got := anchor.EpochMicros(before); got != anchor.EpochReference() {
		t.Errorf("pre-anchor tick converted to %d, want clamp to reference %d",
			got, anchor.EpochReference())
	}
}

// TestAnchor_AgreesWithWallClock validates the anchor against a fresh
// wall reading within a loose tolerance
func TestAnchor_AgreesWithWallClock(t *testing.T) {
	anchor := NewAnchor()
	time.Sleep(10 * time.Millisecond)

	converted := anchor.EpochMicros(time.Now())
	fresh := uint64(time.Now().UnixMicro())

	diff := int64(fresh) - int64(converted)
	if diff < 0 {
		diff = -diff
	}
	// converted value derives from the anchor, not a syscall; allow 10ms
	if diff > 10_000 {
		t.Errorf("converted and fresh wall clock diverge by %dµs", diff)
	}
}

// BenchmarkEpochMicros confirms conversion stays in the nanosecond range
func BenchmarkEpochMicros(b *testing.B) {
	anchor := NewAnchor()
	tick := time.Now()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		anchor.EpochMicros(tick)
	}
}
