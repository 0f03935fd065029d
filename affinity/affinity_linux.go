// affinity_linux.go - Linux CPU pinning and priority via sched_setaffinity(2) / setpriority(2)

//go:build linux && !tinygo

package affinity

import "golang.org/x/sys/unix"

// TryPin binds the calling thread to the given CPU core. The caller must
// hold runtime.LockOSThread for the pin to mean anything.
// Returns false on invalid core or kernel refusal; never aborts the run.
func TryPin(core int) bool {
	var set unix.CPUSet
	if core < 0 || core >= len(set)*64 {
		return false
	}
	set.Zero()
	set.Set(core)
	// tid 0 = calling thread
	return unix.SchedSetaffinity(0, &set) == nil
}

// TryRaisePriority adjusts the calling thread's nice value. Negative values
// raise priority and typically need CAP_SYS_NICE; positive values lower it,
// which is what the I/O writer uses to stay out of the hot path's way.
func TryRaisePriority(nice int) bool {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, nice) == nil
}
