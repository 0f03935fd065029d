// ════════════════════════════════════════════════════════════════════════════════════════════════
// Record Persistence Sinks
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Market-Data Latency Measurement Pipeline
// Component: Out-of-Band CSV Persistence
//
// Description:
//   Two sink strategies behind one interface, chosen once at startup by the
//   available parallelism. Both share the same line encoding and the same
//   contract: Append never performs disk I/O visible to the caller on a
//   multi-core host, Close flushes every buffered byte to stable storage
//   before returning, and no accepted record is ever dropped on shutdown.
//
// Strategies:
//   • RelaySink  — dedicated writer goroutine behind a deep SPSC channel,
//     pinned to an I/O core at lowered priority so disk scheduling never
//     preempts the measurement loop
//   • BufferSink — direct append into a pre-allocated staging buffer with
//     count-threshold flushes, for hosts with a single execution unit where
//     a second thread would cost more than it isolates
//
// Failure model:
//   Open failures are returned to the caller (fail fast: refusing to run
//   beats silently dropping records). Mid-run write failures are logged and
//   the run continues; the error is also surfaced once more from Close.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package sink

import (
	"os"
	"runtime"

	"main/affinity"
	"main/constants"
	"main/control"
	"main/debug"
	"main/types"
	"main/utils"
)

// csvHeader names the record columns, written once before any record.
const csvHeader = "trade_id,trade_ts_us,recv_ts_us,latency_ms,label\n"

// Sink accepts measured records from the pipeline. Append transfers
// ownership of the record; Close guarantees durability of everything
// accepted before it.
type Sink interface {
	Append(rec types.EventRecord)
	Close() error
}

// appendRow encodes one CSV line. Identifier and timestamps are unsigned
// integers; latency is fixed two-decimal milliseconds.
func appendRow(dst []byte, rec *types.EventRecord) []byte {
	dst = utils.AppendUint(dst, rec.EventID)
	dst = append(dst, ',')
	dst = utils.AppendUint(dst, rec.EventTimeUs)
	dst = append(dst, ',')
	dst = utils.AppendUint(dst, rec.ArrivalTimeUs)
	dst = append(dst, ',')
	dst = utils.AppendMillisFixed2(dst, rec.LatencyUs)
	dst = append(dst, ',')
	dst = append(dst, rec.OriginLabel...)
	return append(dst, '\n')
}

// openDestination creates (truncating) the output file and emits the header.
func openDestination(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	if _, err := file.WriteString(csvHeader); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// BUFFER SINK — SINGLE EXECUTION UNIT
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// BufferSink appends rows to a pre-allocated staging buffer and flushes on a
// record-count threshold. Owned by the producer goroutine exclusively; no
// locking, because there is no second thread to exclude.
type BufferSink struct {
	file    *os.File
	staging []byte
	pending int
	lastErr error
}

// NewBufferSink opens the destination and pre-allocates the staging buffer.
func NewBufferSink(path string) (*BufferSink, error) {
	file, err := openDestination(path)
	if err != nil {
		return nil, err
	}
	return &BufferSink{
		file:    file,
		staging: make([]byte, 0, constants.SinkStagingSize),
	}, nil
}

// Append encodes the record into memory and flushes at the interval
// threshold or once the staging buffer approaches capacity.
func (s *BufferSink) Append(rec types.EventRecord) {
	s.staging = appendRow(s.staging, &rec)
	s.pending++
	if s.pending >= constants.SinkFlushInterval || len(s.staging) >= constants.SinkStagingSize-256 {
		s.flush()
	}
}

// flush writes the staging buffer out. Write failures are logged, recorded
// and otherwise survived: the measurement outlives any one failed write.
func (s *BufferSink) flush() {
	if len(s.staging) == 0 {
		return
	}
	if _, err := s.file.Write(s.staging); err != nil {
		debug.DropError("CSV_WRITE", err)
		s.lastErr = err
	}
	s.staging = s.staging[:0]
	s.pending = 0
}

// Close flushes the remainder and syncs to stable storage.
func (s *BufferSink) Close() error {
	s.flush()
	if err := s.file.Sync(); err != nil && s.lastErr == nil {
		s.lastErr = err
	}
	if err := s.file.Close(); err != nil && s.lastErr == nil {
		s.lastErr = err
	}
	return s.lastErr
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RELAY SINK — DEDICATED WRITER
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// RelaySink hands records to a dedicated writer goroutine over a deep
// channel. Single producer, single consumer; closing the channel is the
// completion signal, and the writer drains fully before exiting, so no
// accepted record is lost on shutdown.
type RelaySink struct {
	records chan types.EventRecord
	done    chan struct{}
	writer  *relayWriter
}

type relayWriter struct {
	file    *os.File
	staging []byte
	pending int
	lastErr error
}

// NewRelaySink opens the destination and starts the writer goroutine.
// ioCore pins the writer away from the measurement core; ioNice lowers its
// scheduling priority. Both are best-effort hints.
func NewRelaySink(path string, ioCore, ioNice int) (*RelaySink, error) {
	file, err := openDestination(path)
	if err != nil {
		return nil, err
	}

	s := &RelaySink{
		records: make(chan types.EventRecord, constants.RelayQueueDepth),
		done:    make(chan struct{}),
		writer: &relayWriter{
			file:    file,
			staging: make([]byte, 0, constants.SinkStagingSize),
		},
	}

	control.ShutdownWG.Add(1)
	go s.writer.run(s.records, s.done, ioCore, ioNice)
	return s, nil
}

// Append transfers the record to the writer. The queue is deep enough that
// the hot path never sees backpressure from disk scheduling; if the writer
// wedges entirely, blocking here is preferable to unbounded memory growth.
func (s *RelaySink) Append(rec types.EventRecord) {
	s.records <- rec
}

// Close signals completion by closing the channel — only after the producer
// has stopped sending — then waits for the writer to drain and sync.
func (s *RelaySink) Close() error {
	close(s.records)
	<-s.done
	return s.writer.lastErr
}

// run is the writer loop: pin, deprioritize, drain, flush, exit.
func (w *relayWriter) run(records <-chan types.EventRecord, done chan<- struct{}, ioCore, ioNice int) {
	defer control.ShutdownWG.Done()
	defer close(done)

	// Affinity binds a thread, not a goroutine
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if affinity.TryPin(ioCore) {
		debug.DropMessage("SINK", "Writer pinned to core "+utils.Itoa(ioCore))
	}
	if ioNice != 0 && affinity.TryRaisePriority(ioNice) {
		debug.DropMessage("SINK", "Writer nice set to "+utils.Itoa(ioNice))
	}

	// Range drains the channel completely after close: the no-drop
	// guarantee lives in this line.
	for rec := range records {
		w.staging = appendRow(w.staging, &rec)
		w.pending++
		if w.pending >= constants.SinkFlushInterval || len(w.staging) >= constants.SinkStagingSize-256 {
			w.flush()
		}
	}

	w.flush()
	if err := w.file.Sync(); err != nil && w.lastErr == nil {
		w.lastErr = err
	}
	if err := w.file.Close(); err != nil && w.lastErr == nil {
		w.lastErr = err
	}
}

func (w *relayWriter) flush() {
	if len(w.staging) == 0 {
		return
	}
	if _, err := w.file.Write(w.staging); err != nil {
		debug.DropError("CSV_WRITE", err)
		w.lastErr = err
	}
	w.staging = w.staging[:0]
	w.pending = 0
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DISCARD SINK
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Discard satisfies Sink for stats-only runs with no destination file.
type Discard struct{}

func (Discard) Append(types.EventRecord) {}
func (Discard) Close() error             { return nil }
