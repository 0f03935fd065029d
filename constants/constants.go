// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Global tunables & parsing probes
//
// Purpose:
//   - Defines endpoint addresses, calibration limits, window sizing and the
//     byte probes used by the zero-alloc field scanner.
//
// Notes:
//   - All values must be compile-time resolvable; no runtime logic here.
//   - MinPlausibleEventTimeMs encodes a calendar floor and must be revisited
//     periodically — it rejects garbage, it does not prove correctness.
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────── Stream Endpoint ─────────────────────────

const (
	// StreamHost is the exchange websocket host used for trade delivery.
	StreamHost = "stream.binance.com"

	// StreamPort carries the TLS websocket listener.
	StreamPort = "9443"

	// DefaultSymbol is subscribed when no symbol is given on the command line.
	DefaultSymbol = "btcusdt"
)

// ──────────────────────── Calibration Authority ────────────────────────

const (
	// TimeEndpoint returns {"serverTime":<ms>} and anchors clock calibration.
	TimeEndpoint = "https://api.binance.com/api/v3/time"

	// MaxCalibrationRounds hard-caps calibration regardless of what the caller
	// asks for. 50 rounds at 20Hz pacing bounds calibration to ~3 seconds.
	MaxCalibrationRounds = 50

	// DefaultCalibrationRounds is used when the caller does not override.
	DefaultCalibrationRounds = 20

	// CalibrationRoundHz paces requests so the authority is never hammered
	// and transient network conditions decorrelate across samples.
	CalibrationRoundHz = 20
)

// ───────────────────────── Measurement Tunables ─────────────────────────

const (
	// DefaultRecordTarget stops the run once this many records are captured.
	// Zero means unbounded: run until the stream ends.
	DefaultRecordTarget = 100_000

	// DefaultWindowCapacity bounds the recent-sample window used for
	// percentile and jitter estimation. Memory/accuracy trade-off: exact
	// percentiles over the full stream would need unbounded memory.
	DefaultWindowCapacity = 10_000

	// MinPlausibleEventTimeMs rejects event timestamps before 2020-01-01 UTC.
	// Anything below this is a malformed or pre-epoch value, not a trade.
	MinPlausibleEventTimeMs = 1_577_836_800_000
)

// ───────────────────────── Persistence Sizing ─────────────────────────

const (
	// SinkStagingSize pre-allocates the CSV staging buffer. Writes into it
	// are pure memory operations; disk is touched only at flush boundaries.
	SinkStagingSize = 1 << 20 // 1 MiB

	// SinkFlushInterval flushes the staging buffer every N records so a
	// crash loses at most one interval of data.
	SinkFlushInterval = 1000

	// RelayQueueDepth sizes the producer→writer handoff channel. Deep enough
	// that the hot path never observes backpressure from disk scheduling.
	RelayQueueDepth = 1 << 16
)

// ─────────────────────── Socket & Frame Sizing ───────────────────────

const (
	// SocketBufferSize is applied to both directions of the raw TCP socket.
	SocketBufferSize = 1 << 20 // 1 MiB

	// MaxFrameSize caps a single websocket message read. Trade events are a
	// few hundred bytes; anything near this limit is not a trade.
	MaxFrameSize = 1 << 16 // 64 KiB
)

// ────────────────────── JSON Key Probes for Scanning ──────────────────────

var (
	// These probes drive unsafe field detection in the zero-alloc scanner.
	// Each 4-byte probe is compared with a single unaligned 32-bit read; the
	// remaining key bytes are verified individually. All probes must match
	// the exact on-wire key spelling, quotes included.

	// KeyEventID opens the `"id":` field carrying the event identifier.
	KeyEventID = [4]byte{'"', 'i', 'd', '"'} // followed by ':'

	// KeyEventTime opens the `"time":` field carrying origin milliseconds.
	KeyEventTime = [4]byte{'"', 't', 'i', 'm'} // followed by `e":`

	// KeyServerTime opens the `"serverTime":` field of the time endpoint.
	KeyServerTime = [4]byte{'"', 's', 'e', 'r'} // followed by `verTime":`

	// KeyServerTimeTail completes the serverTime probe after the 4-byte head.
	KeyServerTimeTail = []byte(`verTime":`)
)
