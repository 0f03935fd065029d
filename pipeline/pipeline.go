// ════════════════════════════════════════════════════════════════════════════════════════════════
// Measurement Pipeline
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Market-Data Latency Measurement Pipeline
// Component: Hot-Path Receive Loop
//
// Description:
//   The steady-state loop: await one payload, stamp arrival before anything
//   else, extract the two fields, reject silently on any miss, compute the
//   calibrated latency, fold it into the aggregator and hand the record to
//   the out-of-band sink. The only suspension point is "await next payload";
//   nothing downstream of the stamp blocks on disk or network.
//
// Rejection policy (all silent, all expected):
//   - non-text frame            → transport told us to skip it
//   - field extraction miss     → heartbeat, ack, or malformed payload
//   - zero event id             → sentinel the source uses for non-trades
//   - implausible event time    → pre-epoch or garbage value; latency math
//                                 against it would be meaningless
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package pipeline

import (
	"time"

	"main/clockref"
	"main/constants"
	"main/control"
	"main/parser"
	"main/sink"
	"main/stats"
	"main/types"
)

// timeNow is the arrival stamp source. Package variable so replay tests can
// substitute a fixed clock; production never touches it.
var timeNow = time.Now

// Source delivers raw frames. Satisfied by *ws.Stream; the pipeline never
// sees transport details beyond this.
type Source interface {
	Next() (payload []byte, text bool, err error)
}

// Config carries the per-run measurement parameters.
type Config struct {
	// Label tags every persisted record with the run/machine identity.
	Label string

	// OffsetUs is the calibration correction subtracted from each latency.
	OffsetUs int64

	// RecordTarget stops the loop once this many records are accepted.
	// Zero runs until the stream ends.
	RecordTarget uint64

	// MinEventTimeMs rejects event times below this plausibility floor.
	// Zero selects the compiled-in default.
	MinEventTimeMs uint64
}

// Run drives the loop until the record target is reached, shutdown is
// requested, or the stream ends. Returns the number of accepted records and
// the stream error if the stream ended; reaching the target or a requested
// shutdown returns a nil error.
func Run(src Source, anchor *clockref.Anchor, agg *stats.Aggregator, out sink.Sink, cfg Config) (uint64, error) {
	minEventTime := cfg.MinEventTimeMs
	if minEventTime == 0 {
		minEventTime = constants.MinPlausibleEventTimeMs
	}

	var accepted uint64
	for {
		if control.Stopping() {
			return accepted, nil
		}

		payload, text, err := src.Next()

		// Arrival stamp comes first: everything below this line is
		// processing time we must not fold into the measurement.
		arrival := timeNow()

		if err != nil {
			return accepted, err
		}
		if !text {
			continue
		}

		eventID, eventTimeMs, ok := parser.TradeFields(payload)
		if !ok || eventID == 0 || eventTimeMs < minEventTime {
			continue
		}

		arrivalUs := anchor.EpochMicros(arrival)
		eventTimeUs := eventTimeMs * 1000

		// Signed by design: clock noise and calibration error legitimately
		// drive this negative, and clamping would bias every aggregate.
		latencyUs := int64(arrivalUs) - int64(eventTimeUs) - cfg.OffsetUs

		agg.Update(eventID, latencyUs)
		out.Append(types.EventRecord{
			EventID:       eventID,
			EventTimeUs:   eventTimeUs,
			ArrivalTimeUs: arrivalUs,
			LatencyUs:     latencyUs,
			OriginLabel:   cfg.Label,
		})

		accepted++
		if cfg.RecordTarget > 0 && accepted >= cfg.RecordTarget {
			return accepted, nil
		}
	}
}
