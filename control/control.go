// control.go — Global run-state flags for loop/reporter/sink coordination
// ============================================================================
// RUN LIFECYCLE CONTROL
// ============================================================================
//
// Control provides the one piece of ambient coordination the pipeline needs:
// a stop flag the signal handler can raise and every long-lived goroutine
// can poll cheaply, plus a WaitGroup that gates process exit until the sink
// has drained and the reporter has printed its final line.
//
// Threading model:
//   • Shutdown() may be called from any goroutine, any number of times
//   • Stopping() is a single atomic load, cheap enough for sparse polling
//     from the measurement loop (it is not called per message; the loop
//     checks it on frame boundaries only)
//   • ShutdownWG is Add()ed before a subsystem goroutine starts and Done()d
//     as that goroutine's last action

package control

import (
	"sync"
	"sync/atomic"
)

// ShutdownWG gates process exit on subsystem teardown: the persistence
// writer and the reporter register here.
var ShutdownWG sync.WaitGroup

var stop atomic.Bool

// Shutdown raises the stop flag. Idempotent.
func Shutdown() {
	stop.Store(true)
}

// Stopping reports whether shutdown has been requested.
//
//go:nosplit
//go:inline
func Stopping() bool {
	return stop.Load()
}

// Reset clears the flag. Test use only; production raises it exactly once.
func Reset() {
	stop.Store(false)
}
