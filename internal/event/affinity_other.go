//go:build !linux

package event

// pinToCPU is a no-op on platforms without sched_setaffinity; the worker
// and poller still run correctly, just without CPU pinning.
func pinToCPU(cpu int) error { return nil }
