// ════════════════════════════════════════════════════════════════════════════════════════════════
// Trade Latency Recorder - Main Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Market-Data Latency Measurement Pipeline
// Component: Main Entry Point & System Orchestration
//
// Description:
//   System orchestration with phased initialization and clean separation of concerns.
//   Calibration → Memory Optimization → Hot-Path Measurement
//
// Architecture:
//   - Phase 1: Clock calibration against the remote time authority
//   - Phase 2: Memory cleanup and anchor capture before production
//   - Phase 3: Measurement loop with GC disabled and the hot thread pinned
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	rtdebug "runtime/debug"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"main/affinity"
	"main/calibrate"
	"main/clockref"
	"main/constants"
	"main/control"
	"main/debug"
	"main/pipeline"
	"main/report"
	"main/sink"
	"main/stats"
	"main/utils"
	"main/ws"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

type runConfig struct {
	symbol   string
	count    uint64
	label    string
	csvPath  string
	window   int
	rounds   int
	live     bool
	jsonOut  bool
	hotCore  int
	ioCore   int
	ioNice   int
	interval time.Duration
}

// parseFlags resolves the command line plus environment into a run config.
// Label precedence: --label, then MACHINE_ID, then AWS_REGION, then hostname.
func parseFlags() runConfig {
	var cfg runConfig
	pflag.StringVar(&cfg.symbol, "symbol", constants.DefaultSymbol, "trade stream symbol to subscribe")
	pflag.Uint64Var(&cfg.count, "count", constants.DefaultRecordTarget, "records to capture before stopping (0 = until stream ends)")
	pflag.StringVar(&cfg.label, "label", "", "identity stamped on every record (default: MACHINE_ID env)")
	pflag.StringVar(&cfg.csvPath, "csv", "", "CSV destination; 'auto' derives a timestamped filename, empty disables persistence")
	pflag.IntVar(&cfg.window, "window", constants.DefaultWindowCapacity, "recent-sample window for percentiles and jitter")
	pflag.IntVar(&cfg.rounds, "calibration-rounds", constants.DefaultCalibrationRounds, "clock calibration rounds against the time authority")
	pflag.BoolVar(&cfg.live, "live", true, "periodic progress output while running")
	pflag.BoolVar(&cfg.jsonOut, "json", false, "emit progress as JSON snapshot lines")
	pflag.IntVar(&cfg.hotCore, "hot-core", -1, "CPU core to pin the measurement thread to (-1 = unpinned)")
	pflag.IntVar(&cfg.ioCore, "io-core", -1, "CPU core to pin the CSV writer thread to (-1 = unpinned)")
	pflag.IntVar(&cfg.ioNice, "io-nice", 0, "nice value for the CSV writer thread (0 = unchanged)")
	pflag.DurationVar(&cfg.interval, "report-interval", time.Second, "progress report interval")
	pflag.Parse()

	if cfg.label == "" {
		cfg.label = os.Getenv("MACHINE_ID")
	}
	if cfg.label == "" {
		cfg.label = os.Getenv("AWS_REGION")
	}
	if cfg.label == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.label = host
		} else {
			cfg.label = "unknown"
		}
	}
	if cfg.csvPath == "auto" {
		cfg.csvPath = "trades_" + cfg.label + "_" + strconv.FormatInt(time.Now().Unix(), 10) + ".csv"
	}
	if cfg.window <= 0 {
		cfg.window = constants.DefaultWindowCapacity
	}
	return cfg
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// MAIN ORCHESTRATION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// main orchestrates the complete run lifecycle in distinct phases.
// Each phase has specific responsibilities and optimization characteristics.
func main() {
	cfg := parseFlags()
	debug.DropMessage("INIT", "symbol "+cfg.symbol+", label "+cfg.label)

	setupSignalHandling()

	// PHASE 1: Clock calibration against the remote time authority.
	// Latencies are meaningless without knowing how far the local clock drifts.
	cal := calibrate.New(constants.TimeEndpoint).Run(context.Background(), cfg.rounds)
	if cal.Degraded {
		debug.DropMessage("CALIBRATE", "degraded: no usable samples, offset 0")
	} else {
		debug.DropMessage("CALIBRATE", utils.Itoa(len(cal.Samples))+" samples, best RTT "+
			utils.Utoa(cal.BestRTTUs)+"µs")
	}

	out := openSink(cfg)
	agg := stats.New(cfg.window)

	var rep *report.Reporter
	if cfg.live {
		mode := report.ModeAuto
		if cfg.jsonOut {
			mode = report.ModeJSON
		}
		rep = report.Start(agg, cfg.interval, mode)
	}

	// PHASE 2: Memory optimization and anchor capture.
	// The anchor is taken after cleanup so no GC pause sits between its two
	// clock reads.
	runtime.GC()
	runtime.GC()
	rtdebug.FreeOSMemory()
	anchor := clockref.NewAnchor()

	// PHASE 3: Production mode with optimized runtime characteristics.
	// Garbage collection off, hot thread locked and optionally pinned.
	rtdebug.SetGCPercent(-1)
	runtime.LockOSThread()
	if cfg.hotCore >= 0 {
		if affinity.TryPin(cfg.hotCore) {
			debug.DropMessage("AFFINITY", "hot thread pinned to core "+utils.Itoa(cfg.hotCore))
		} else {
			debug.DropMessage("AFFINITY", "hot core pin unavailable, continuing unpinned")
		}
	}

	pcfg := pipeline.Config{
		Label:        cfg.label,
		OffsetUs:     cal.OffsetUs,
		RecordTarget: cfg.count,
	}

	// Reconnect loop: a dropped stream restarts the connection, never the run.
	// Sequence gap counts are only meaningful within one connection, so the
	// aggregator's gap totals should be read per-connection when reconnects
	// occur.
	var captured uint64
	for !control.Stopping() {
		n, err := runStream(cfg.symbol, anchor, agg, out, pcfg, captured)
		captured += n
		if err == nil {
			break // target reached or shutdown requested
		}
		debug.DropError("STREAM", err)
		if cfg.count > 0 && captured >= cfg.count {
			break
		}
	}

	finish(rep, out, agg, cal)
}

// runStream dials one connection and drives the measurement loop over it.
// alreadyCaptured shrinks the remaining target across reconnects.
func runStream(symbol string, anchor *clockref.Anchor, agg *stats.Aggregator,
	out sink.Sink, pcfg pipeline.Config, alreadyCaptured uint64) (uint64, error) {

	if pcfg.RecordTarget > 0 {
		if alreadyCaptured >= pcfg.RecordTarget {
			return 0, nil
		}
		pcfg.RecordTarget -= alreadyCaptured
	}

	stream, err := ws.Dial(symbol)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	debug.DropMessage("STREAM", "connected to "+symbol+"@trade")
	return pipeline.Run(stream, anchor, agg, out, pcfg)
}

// finish re-enables the runtime, drains the out-of-band machinery and prints
// the end-of-run summary.
func finish(rep *report.Reporter, out sink.Sink, agg *stats.Aggregator, cal calibrate.Result) {
	rtdebug.SetGCPercent(100)

	if rep != nil {
		rep.Stop()
	}
	if err := out.Close(); err != nil {
		debug.DropError("SINK", err)
	}
	control.ShutdownWG.Wait()

	snap := agg.Snapshot()
	report.FinalBanner(os.Stdout, snap)
	if !cal.Degraded {
		debug.DropMessage("CALIBRATE", "applied offset "+utils.Itoa(int(cal.OffsetUs))+"µs, best RTT "+
			utils.Utoa(cal.BestRTTUs)+"µs")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PERSISTENCE SELECTION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// openSink picks the persistence strategy. No path keeps records out of
// persistence entirely; with a path, a spare core gets the relay writer and
// a single-core host falls back to inline buffered writes.
func openSink(cfg runConfig) sink.Sink {
	if cfg.csvPath == "" {
		debug.DropMessage("SINK", "persistence disabled, stats only")
		return sink.Discard{}
	}

	if runtime.NumCPU() >= 2 {
		s, err := sink.NewRelaySink(cfg.csvPath, cfg.ioCore, cfg.ioNice)
		if err != nil {
			debug.DropError("SINK", err)
			os.Exit(1)
		}
		debug.DropMessage("SINK", "relay writer → "+cfg.csvPath)
		return s
	}

	s, err := sink.NewBufferSink(cfg.csvPath)
	if err != nil {
		debug.DropError("SINK", err)
		os.Exit(1)
	}
	debug.DropMessage("SINK", "inline buffer → "+cfg.csvPath)
	return s
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SYSTEM LIFECYCLE MANAGEMENT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// setupSignalHandling configures graceful shutdown coordination.
// The latch is sticky: the measurement loop observes it at the next frame
// boundary, finishes the in-flight record and unwinds through finish().
func setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		debug.DropMessage("SIGNAL", "interrupt received, stopping after current frame")
		control.Shutdown()

		// A second signal forces exit for a wedged stream read.
		<-sigChan
		debug.DropMessage("SIGNAL", "second interrupt, forcing exit")
		os.Exit(1)
	}()
}
