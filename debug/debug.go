// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — cold-path logging helper (zero-alloc)
//
// Purpose:
//   - Logs infrequent events without introducing heap pressure: calibration
//     progress, connection state changes, sink lifecycle, write failures.
//
// Notes:
//   - Avoids fmt to keep footprint minimal; plain concatenation only.
//   - Writes straight to stderr so persisted CSV output stays clean.
//
// ⚠️ Never invoke in the measurement loop — cold paths only.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "main/utils"

// DropMessage logs a tagged diagnostic line. Used for connection state
// changes, calibration results, flush notices and other infrequent events.
//
//go:nosplit
//go:inline
func DropMessage(prefix, message string) {
	utils.PrintWarning(prefix + ": " + message + "\n")
}

// DropError logs a tagged error line, or just the tag when err is nil.
//
//go:nosplit
//go:inline
func DropError(prefix string, err error) {
	if err != nil {
		utils.PrintWarning(prefix + ": " + err.Error() + "\n")
		return
	}
	utils.PrintWarning(prefix + "\n")
}
