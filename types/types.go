package types

// ============================================================================
// MEASUREMENT RECORD TYPES
// ============================================================================

// EventRecord is one fully measured trade event. Created once per parsed
// payload on the hot path, then handed to the persistence sink by value —
// the producer never retains a reference after the handoff.
//
// Field layout keeps the four 8-byte numeric fields first so the struct
// copies as four machine words plus the label header.
type EventRecord struct {
	// EventID is the source-assigned identifier, assumed monotonic within
	// a single connection.
	EventID uint64

	// EventTimeUs is the origin timestamp in epoch microseconds.
	EventTimeUs uint64

	// ArrivalTimeUs is the local receive timestamp in epoch microseconds,
	// stamped before any parsing took place.
	ArrivalTimeUs uint64

	// LatencyUs is arrival − origin − calibration offset. Signed: clock
	// noise and calibration error legitimately drive it negative.
	LatencyUs int64

	// OriginLabel tags the row with the run/machine identity.
	OriginLabel string
}

// CalibrationSample is one calibration round trip. Ephemeral: produced
// during calibration only and discarded after the best-offset decision.
type CalibrationSample struct {
	// OffsetUs is the estimated local-minus-authority clock offset.
	OffsetUs int64

	// RoundTripUs is the local send→receive duration of the round.
	RoundTripUs uint64
}
