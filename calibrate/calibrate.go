// ════════════════════════════════════════════════════════════════════════════════════════════════
// Clock Calibration Against Remote Time Authority
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Market-Data Latency Measurement Pipeline
// Component: Startup Clock Offset Estimation
//
// Description:
//   Estimates how far the local wall clock leads or lags the exchange clock by
//   sampling round trips to the authority time endpoint. Runs once, before the
//   measurement loop starts; its signed microsecond result is subtracted from
//   every subsequent latency computation.
//
// Algorithm:
//   Per round: record t1, GET the time endpoint, record t3, extract the
//   reported milliseconds with the same field scanner the hot path uses.
//   The authority's clock is estimated at the round-trip midpoint
//   t1 + (t3−t1)/2; the sample offset is midpoint − reported·1000.
//   The sample with the smallest round trip wins: symmetric-delay error
//   grows with round-trip time, so minimal RTT is the best proxy for
//   minimal estimation error.
//
// Failure model:
//   Individual round failures are skipped. Zero successful rounds degrades
//   to a zero offset with a surfaced flag — an uncalibrated run still has
//   relative value, so calibration failure is never fatal.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package calibrate

import (
	"context"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"main/constants"
	"main/debug"
	"main/parser"
	"main/types"
	"main/utils"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CALIBRATOR
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Calibrator issues paced requests against one authority endpoint.
type Calibrator struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// Result carries the best-offset decision and enough diagnostics to judge
// its quality. Samples are retained so the selection policy can change
// without touching callers.
type Result struct {
	// OffsetUs is positive when the local clock leads the authority.
	OffsetUs int64

	// Degraded marks a run where no round succeeded; OffsetUs is zero and
	// absolute latencies are biased by the uncorrected drift.
	Degraded bool

	// BestRTTUs is the round trip of the winning sample.
	BestRTTUs uint64

	// Samples holds every successful round, sorted by round trip ascending.
	Samples []types.CalibrationSample
}

// New builds a calibrator for the given endpoint. The transport carries the
// same dial discipline as the measurement path: fast establishment, no
// compression, generous buffers.
func New(endpoint string) *Calibrator {
	return &Calibrator{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 60 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 4 * time.Second,
				DisableCompression:  true,
				ForceAttemptHTTP2:   true,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(constants.CalibrationRoundHz), 1),
	}
}

// NewWithClient builds a calibrator over a caller-supplied client.
// Test seam, also useful behind proxies.
func NewWithClient(endpoint string, client *http.Client) *Calibrator {
	c := New(endpoint)
	c.client = client
	return c
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CALIBRATION RUN
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Run performs up to `rounds` paced round trips and returns the best-offset
// decision. The round count is hard-capped so calibration wall time stays
// bounded no matter what the caller asks for.
func (c *Calibrator) Run(ctx context.Context, rounds int) Result {
	if rounds <= 0 {
		rounds = constants.DefaultCalibrationRounds
	}
	if rounds > constants.MaxCalibrationRounds {
		rounds = constants.MaxCalibrationRounds
	}

	debug.DropMessage("CALIBRATE", "Sampling authority clock, "+utils.Itoa(rounds)+" rounds")

	samples := make([]types.CalibrationSample, 0, rounds)
	for i := 0; i < rounds; i++ {
		// Inter-round pacing decorrelates transient network conditions and
		// keeps the authority unbothered.
		if err := c.limiter.Wait(ctx); err != nil {
			break
		}
		if sample, ok := c.sampleOnce(ctx); ok {
			samples = append(samples, sample)
		}
	}

	if len(samples) == 0 {
		debug.DropMessage("CALIBRATE", "WARNING: no usable samples, offset = 0")
		return Result{Degraded: true}
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].RoundTripUs < samples[j].RoundTripUs
	})

	best := samples[0]
	median := samples[len(samples)/2]
	debug.DropMessage("CALIBRATE", "Best RTT "+utils.Utoa(best.RoundTripUs)+"µs, offset "+
		utils.Itoa(int(best.OffsetUs))+"µs")
	debug.DropMessage("CALIBRATE", "Median RTT "+utils.Utoa(median.RoundTripUs)+"µs, offset "+
		utils.Itoa(int(median.OffsetUs))+"µs")
	debug.DropMessage("CALIBRATE", "Local clock is ~"+formatOffsetMs(best.OffsetUs)+
		" the authority")

	return Result{
		OffsetUs:  best.OffsetUs,
		BestRTTUs: best.RoundTripUs,
		Samples:   samples,
	}
}

// sampleOnce executes a single round trip. Any failure — dial, status,
// body read, field miss — simply discards the round.
func (c *Calibrator) sampleOnce(ctx context.Context) (types.CalibrationSample, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return types.CalibrationSample{}, false
	}

	t1 := time.Now().UnixMicro()
	resp, err := c.client.Do(req)
	if err != nil {
		return types.CalibrationSample{}, false
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	t3 := time.Now().UnixMicro()

	if err != nil || resp.StatusCode != http.StatusOK {
		return types.CalibrationSample{}, false
	}

	reportedMs, ok := parser.ServerTime(body)
	if !ok {
		return types.CalibrationSample{}, false
	}

	rtt := t3 - t1
	localAtAuthority := t1 + rtt/2
	return types.CalibrationSample{
		OffsetUs:    localAtAuthority - int64(reportedMs)*1000,
		RoundTripUs: uint64(rtt),
	}, true
}

// formatOffsetMs renders "<n>.<dd>ms ahead of" / "behind" phrasing for the
// calibration banner.
func formatOffsetMs(offsetUs int64) string {
	direction := " ahead of"
	if offsetUs < 0 {
		direction = " behind"
	}
	abs := offsetUs
	if abs < 0 {
		abs = -abs
	}
	return utils.B2s(utils.AppendMillisFixed2(nil, abs)) + "ms" + direction
}
