package utils

import (
	"os"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Conversion Utilities — Zero-Alloc Casts
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to a string **without** allocation.
// ⚠️ Caller must ensure the input slice remains valid and unchanged.
// Used for human-readable print paths.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// Load32 reads an unaligned 32-bit word from a byte slice.
// Used for 4-byte key probe comparison during field scanning.
//
//go:nosplit
//go:inline
func Load32(b []byte) uint32 {
	return *(*uint32)(unsafe.Pointer(&b[0]))
}

///////////////////////////////////////////////////////////////////////////////
// Decimal Scanners — No Allocation, Stop at First Non-Digit
///////////////////////////////////////////////////////////////////////////////

// ParseDigits greedily parses a run of ASCII digits starting at b[0].
// Returns the value and the number of bytes consumed; consumed == 0 means
// no digit was present. ~4x faster than strconv.ParseUint on short runs.
//
//go:nosplit
//go:inline
func ParseDigits(b []byte) (uint64, int) {
	var v uint64
	i := 0
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint64(c-'0')
	}
	return v, i
}

// SkipSpaces returns the index of the first non-space byte at or after i.
//
//go:nosplit
//go:inline
func SkipSpaces(b []byte, i int) int {
	for i < len(b) && b[i] == ' ' {
		i++
	}
	return i
}

///////////////////////////////////////////////////////////////////////////////
// Decimal Formatters — For CSV Rows & Diagnostics
///////////////////////////////////////////////////////////////////////////////

// AppendUint appends the base-10 form of v without allocation beyond the
// destination's own growth. Mirror of strconv.AppendUint for the CSV path.
func AppendUint(dst []byte, v uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte('0' + v%10)
		v /= 10
		if v == 0 {
			break
		}
	}
	return append(dst, tmp[i:]...)
}

// AppendInt appends the base-10 form of a signed value.
func AppendInt(dst []byte, v int64) []byte {
	if v < 0 {
		dst = append(dst, '-')
		return AppendUint(dst, uint64(-v))
	}
	return AppendUint(dst, uint64(v))
}

// AppendMillisFixed2 renders a microsecond quantity as milliseconds with
// exactly two decimal places: 42000µs → "42.00", -1234µs → "-1.23".
// Rounding is toward zero; record rows are measurements, not accounting.
func AppendMillisFixed2(dst []byte, us int64) []byte {
	if us < 0 {
		dst = append(dst, '-')
		us = -us
	}
	dst = AppendUint(dst, uint64(us/1000))
	frac := uint64(us%1000) / 10
	return append(dst, '.', byte('0'+frac/10), byte('0'+frac%10))
}

// Itoa converts an int to its decimal string. Allocates only the result.
func Itoa(v int) string {
	return string(AppendInt(nil, int64(v)))
}

// Utoa converts a uint64 to its decimal string.
func Utoa(v uint64) string {
	return string(AppendUint(nil, v))
}

///////////////////////////////////////////////////////////////////////////////
// Direct Output — Bypasses fmt For Cold-Path Diagnostics
///////////////////////////////////////////////////////////////////////////////

// PrintWarning writes directly to stderr. No formatting, no locking, no
// intermediate buffers. Cold paths only.
//
//go:nosplit
//go:inline
func PrintWarning(msg string) {
	os.Stderr.WriteString(msg)
}
