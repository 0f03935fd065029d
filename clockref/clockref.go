// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: clockref.go — monotonic→epoch conversion without per-call syscalls
//
// Purpose:
//   - Captures one wall/monotonic anchor pair at startup and converts later
//     monotonic readings to epoch microseconds with pure arithmetic.
//
// Notes:
//   - Repeated wall-clock reads under a message burst are themselves a
//     measurement confound; one anchor capture amortizes the cost.
//   - Accuracy is bounded by the anchor capture gap and by monotonic clock
//     resolution. Converted values are anchor-derived, not syscall-fresh.
// ─────────────────────────────────────────────────────────────────────────────

package clockref

import "time"

// Anchor pairs a monotonic reference with the epoch microseconds observed at
// (as nearly as the platform allows) the same instant. Immutable after
// construction; owned by the hot-path goroutine, never shared for writing.
type Anchor struct {
	reference  time.Time // carries the monotonic reading
	epochRefUs uint64    // wall clock at the reference instant
}

// NewAnchor captures the reference pair. The two reads are issued
// back-to-back to bound the anchor error to a single call's jitter.
func NewAnchor() *Anchor {
	reference := time.Now()
	epochUs := uint64(reference.UnixMicro())
	return &Anchor{reference: reference, epochRefUs: epochUs}
}

// NewAnchorAt builds an anchor from an explicit reference pair. Replay and
// test use; production captures the pair itself via NewAnchor.
func NewAnchorAt(reference time.Time, epochRefUs uint64) *Anchor {
	return &Anchor{reference: reference, epochRefUs: epochRefUs}
}

// EpochMicros converts a later monotonic reading to epoch microseconds as
// epochRef + (tick − reference). No clock is consulted.
//
// Monotonic by construction: a later tick can never convert to an earlier
// epoch value. Readings taken before the anchor clamp to the anchor itself.
//
//go:nosplit
//go:inline
func (a *Anchor) EpochMicros(tick time.Time) uint64 {
	elapsed := tick.Sub(a.reference)
	if elapsed < 0 {
		return a.epochRefUs
	}
	return a.epochRefUs + uint64(elapsed.Microseconds())
}

// EpochReference exposes the captured wall reading for diagnostics.
func (a *Anchor) EpochReference() uint64 {
	return a.epochRefUs
}
