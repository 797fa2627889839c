// Package event implements the request pipeline of spec.md §4.5: a
// submission path that dispatches into the FTL/cache, and a completion
// path that releases callers once a request's modeled latency has
// actually elapsed. The original ran this as two kernel threads
// shuttling "event" structs through lock-free rings and a custom
// min-heap; here the same split survives as two goroutines connected by
// channels, with a container/heap-ordered poller standing in for the
// original's bytefs_heap.
package event

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Op identifies the kind of request carried by a Request.
type Op int

const (
	OpWrite Op = iota
	OpRead
)

// Request is the Go analogue of the original's `event`/NvmeCmd pair
// (bytefs_init_nvme): one in-flight page operation plus the bookkeeping
// the pipeline needs to compute and honor its modeled latency.
type Request struct {
	// ID correlates a Request across submission, dispatch and
	// completion — useful for tracing (see Tracer). The control plane
	// does not expose per-request data.
	ID uuid.UUID

	Op   Op
	LPN  uint64
	NLB  int    // number of pages starting at LPN (spec.md §4.3 block path)
	Data []byte // NLB*PGSZ bytes; written into (read) or copied from (write)

	// SubmitTime/ExpireTime/Latency mirror s_time/expire_time/reqlat:
	// SubmitTime is stamped by the worker right before dispatch,
	// Latency is the value the FTL/cache path reports back, and
	// ExpireTime = SubmitTime + Latency is what the poller waits for.
	SubmitTime uint64
	ExpireTime uint64
	Latency    uint64

	// Block mirrors if_block: true for a synchronous caller waiting on
	// Done, false for a fire-and-forget request the poller releases
	// purely by letting its deadline pass.
	Block bool
	Done  chan struct{}

	// Outstanding, when non-nil, is decremented by the poller when this
	// Request's deadline passes — the Go equivalent of the original's
	// shared if_end_bio counter for a multi-page bio split across
	// several events.
	Outstanding *atomic.Int64

	// OnComplete, if set, runs on the poller goroutine once the
	// request's deadline has passed — the bio_endio callback slot.
	OnComplete func(*Request)

	Err error

	seq uint64 // insertion order, for heap tie-breaking
}

// NewRequest builds a Request with a fresh correlation ID.
func NewRequest(op Op, lpn uint64, nlb int, data []byte, block bool) *Request {
	r := &Request{
		ID:    uuid.New(),
		Op:    op,
		LPN:   lpn,
		NLB:   nlb,
		Data:  data,
		Block: block,
	}
	if block {
		r.Done = make(chan struct{})
	}
	return r
}
