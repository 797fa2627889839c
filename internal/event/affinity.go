//go:build linux

package event

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU locks the calling goroutine to its OS thread and restricts that
// thread to a single CPU — the Go idiom for what the original got for
// free by running the FTL worker and poller as dedicated kernel threads
// (kthread_create pinned via set_cpus_allowed). Must be called from the
// goroutine that is to be pinned, before it starts its work loop.
func pinToCPU(cpu int) error {
	if cpu < 0 {
		return nil
	}
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
