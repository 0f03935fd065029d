// affinity_stub.go - no-op CPU capability for platforms without sched_setaffinity(2)
//
// Keeps the API surface identical so callers need no conditional logic.
// Both operations report failure; callers treat that as "hint not taken"
// and continue, never as an error.

//go:build !linux || tinygo

package affinity

// TryPin reports false: core pinning is unavailable on this platform.
func TryPin(core int) bool {
	return false
}

// TryRaisePriority reports false: priority hints are unavailable here.
func TryRaisePriority(nice int) bool {
	return false
}
