package parser

import (
	"main/constants"
	"main/utils"
)

// ============================================================================
// TRADE EVENT FIELD EXTRACTOR - ALLOCATION-FREE JSON PROCESSING
// ============================================================================
//
// This extractor pulls exactly two integer fields out of a trade event
// payload without a structural JSON parse. It locates the `"id":` and
// `"time":` keys by literal byte pattern, skips whitespace after the
// delimiter, then greedily consumes a run of ASCII digits. Brace and quote
// nesting is never tracked: the payload shape is assumed, not validated.
//
// PERFORMANCE CHARACTERISTICS:
// - Zero heap allocations per payload
// - 4-byte unaligned probe reads for key detection
// - Linear single pass per field
// - Stops at the first non-digit byte, so quoted or fractional values
//   yield no result rather than a wrong one
//
// SAFETY MODEL:
// - "No result" is the expected outcome for heartbeats, acks and any
//   non-trade frame; callers discard silently, never raise
//
// ============================================================================

// TradeFields extracts (event id, event time in ms) from one trade payload.
//
// Both keys must be present with a non-empty digit run immediately after the
// delimiter (whitespace allowed); otherwise ok is false and both values are
// zero. A zero id and an implausibly small time are policy, handled by the
// caller — this function reports only what the bytes say.
//
//go:nosplit
//go:inline
func TradeFields(p []byte) (id uint64, timeMs uint64, ok bool) {
	id, idOK := scanIDField(p)
	if !idOK {
		return 0, 0, false
	}
	timeMs, tOK := scanTimeField(p)
	if !tOK {
		return 0, 0, false
	}
	return id, timeMs, true
}

// ServerTime extracts the authority-reported milliseconds from a time
// endpoint body of the shape {"serverTime":1234567890123}. Shares the same
// digit-run technique as the hot path so calibration and measurement agree
// on what a field is.
func ServerTime(body []byte) (uint64, bool) {
	end := len(body) - 4 - len(constants.KeyServerTimeTail)
	for i := 0; i <= end; i++ {
		if utils.Load32(body[i:]) != probeWord(constants.KeyServerTime) {
			continue
		}
		if !tailMatches(body[i+4:], constants.KeyServerTimeTail) {
			continue
		}
		return digitsAfter(body, i+4+len(constants.KeyServerTimeTail))
	}
	return 0, false
}

// ============================================================================
// SCANNING PRIMITIVES
// ============================================================================

// scanIDField matches the 5-byte literal `"id":`. The probe covers the first
// four bytes; the trailing ':' is verified directly.
//
//go:nosplit
//go:inline
func scanIDField(p []byte) (uint64, bool) {
	end := len(p) - 6
	for i := 0; i <= end; i++ {
		if utils.Load32(p[i:]) != probeWord(constants.KeyEventID) {
			continue
		}
		if p[i+4] != ':' {
			continue
		}
		return digitsAfter(p, i+5)
	}
	return 0, false
}

// scanTimeField matches the 7-byte literal `"time":`. The probe covers the
// first four bytes; the remaining `e":` is verified directly.
//
//go:nosplit
//go:inline
func scanTimeField(p []byte) (uint64, bool) {
	end := len(p) - 8
	for i := 0; i <= end; i++ {
		if utils.Load32(p[i:]) != probeWord(constants.KeyEventTime) {
			continue
		}
		if p[i+4] != 'e' || p[i+5] != '"' || p[i+6] != ':' {
			continue
		}
		return digitsAfter(p, i+7)
	}
	return 0, false
}

// digitsAfter skips spaces from position i and consumes the digit run.
// An empty run means the value was quoted, negative, or absent — no result.
//
//go:nosplit
//go:inline
func digitsAfter(p []byte, i int) (uint64, bool) {
	i = utils.SkipSpaces(p, i)
	if i >= len(p) {
		return 0, false
	}
	v, n := utils.ParseDigits(p[i:])
	if n == 0 {
		return 0, false
	}
	return v, true
}

// probeWord folds a 4-byte probe into its little-endian comparable word.
//
//go:nosplit
//go:inline
func probeWord(k [4]byte) uint32 {
	return uint32(k[0]) | uint32(k[1])<<8 | uint32(k[2])<<16 | uint32(k[3])<<24
}

// tailMatches verifies the key bytes following a probe head.
//
//go:nosplit
//go:inline
func tailMatches(p []byte, tail []byte) bool {
	if len(p) < len(tail) {
		return false
	}
	for i := range tail {
		if p[i] != tail[i] {
			return false
		}
	}
	return true
}
