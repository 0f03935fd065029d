// ════════════════════════════════════════════════════════════════════════════════════════════════
// Run Reporter
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Market-Data Latency Measurement Pipeline
// Component: Periodic Progress Reporting
//
// Description:
//   Out-of-band progress output. A ticker goroutine reads aggregator
//   snapshots and renders them either as a carriage-returned live line
//   (interactive terminal), one plain line per interval, or one JSON object
//   per interval for machine consumption. Runs entirely off the hot path;
//   the only shared state it touches is the aggregator's snapshot reads.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/term"

	"main/control"
	"main/stats"
)

// Mode selects the rendered output shape.
type Mode int

const (
	// ModeAuto picks a live line on a terminal, plain lines otherwise.
	ModeAuto Mode = iota

	// ModePlain emits one summary line per interval.
	ModePlain

	// ModeJSON emits one JSON snapshot object per interval.
	ModeJSON
)

// Reporter owns the ticker goroutine. Stop it exactly once.
type Reporter struct {
	agg      *stats.Aggregator
	out      io.Writer
	interval time.Duration
	mode     Mode
	live     bool
	done     chan struct{}
	stopped  chan struct{}
}

// Start launches a reporter writing to stderr, keeping stdout clean for the
// final summary. ModeAuto resolves against whether stderr is an interactive
// terminal.
func Start(agg *stats.Aggregator, interval time.Duration, mode Mode) *Reporter {
	live := false
	if mode == ModeAuto {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			live = true
		}
		mode = ModePlain
	}
	return StartTo(os.Stderr, agg, interval, mode, live)
}

// StartTo launches a reporter against an explicit writer. Test seam and
// building block for Start.
func StartTo(w io.Writer, agg *stats.Aggregator, interval time.Duration, mode Mode, live bool) *Reporter {
	r := &Reporter{
		agg:      agg,
		out:      w,
		interval: interval,
		mode:     mode,
		live:     live,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	control.ShutdownWG.Add(1)
	go r.loop()
	return r
}

// Stop halts the ticker and emits one final snapshot line.
func (r *Reporter) Stop() {
	close(r.done)
	<-r.stopped
}

func (r *Reporter) loop() {
	defer control.ShutdownWG.Done()
	defer close(r.stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if control.Stopping() {
				r.emit(true)
				return
			}
			r.emit(false)
		case <-r.done:
			r.emit(true)
			return
		}
	}
}

// emit renders one snapshot. The final emission always terminates with a
// newline so a live line is not left dangling.
func (r *Reporter) emit(final bool) {
	snap := r.agg.Snapshot()

	if r.mode == ModeJSON {
		buf, err := sonnet.Marshal(snap)
		if err != nil {
			return
		}
		r.out.Write(append(buf, '\n'))
		return
	}

	lead, tail := "", "\n"
	if r.live && !final {
		lead, tail = "\r", ""
	} else if r.live {
		lead = "\r"
	}
	fmt.Fprintf(r.out,
		"%scount=%d rate=%.0f/s mean=%.0fµs p50=%dµs p95=%dµs p99=%dµs jitter=%.0fµs gaps=%d ooo=%d%s",
		lead, snap.Count, snap.EventsPerSec, snap.MeanUs,
		snap.P50Us, snap.P95Us, snap.P99Us, snap.JitterUs,
		snap.GapCount, snap.OutOfOrder, tail)
}

// FinalBanner prints the end-of-run summary block.
func FinalBanner(w io.Writer, snap stats.Snapshot) {
	fmt.Fprintln(w, "────────────────────────────────────────────")
	fmt.Fprintf(w, "records      %d\n", snap.Count)
	fmt.Fprintf(w, "rate         %.1f events/s\n", snap.EventsPerSec)
	fmt.Fprintf(w, "mean         %.2f ms\n", snap.MeanUs/1000)
	fmt.Fprintf(w, "min / max    %.2f / %.2f ms\n", float64(snap.MinUs)/1000, float64(snap.MaxUs)/1000)
	fmt.Fprintf(w, "p50/p95/p99  %.2f / %.2f / %.2f ms\n",
		float64(snap.P50Us)/1000, float64(snap.P95Us)/1000, float64(snap.P99Us)/1000)
	fmt.Fprintf(w, "jitter       %.2f ms\n", snap.JitterUs/1000)
	fmt.Fprintf(w, "gaps         %d\n", snap.GapCount)
	fmt.Fprintf(w, "out of order %d\n", snap.OutOfOrder)
	fmt.Fprintln(w, "────────────────────────────────────────────")
}
