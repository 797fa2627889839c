package event

import "time"

// Clock abstracts the nanosecond time source so tests can inject a fake
// one instead of racing the wall clock.
type Clock interface {
	NowNanos() uint64
}

// systemClock reads the real monotonic clock.
type systemClock struct{}

func (systemClock) NowNanos() uint64 { return uint64(time.Now().UnixNano()) }

// SystemClock is the default Clock used outside of tests.
var SystemClock Clock = systemClock{}
