package event

import "time"

// Pipeline is the FTL worker + poller pair of spec.md §4.5: requests are
// submitted onto a channel, dispatched against the FTL/cache by the
// worker goroutine, and released by the poller goroutine once their
// modeled ExpireTime has elapsed. The original's lock-free SPSC rings are
// replaced by buffered Go channels; the original's custom min-heap is
// replaced by pendingQueue (container/heap).
type Pipeline struct {
	dispatcher Dispatcher
	clock      Clock
	tracer     Tracer

	submit chan *Request
	done   chan struct{}

	workerCPU int
	pollerCPU int
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithTracer installs a non-default Tracer.
func WithTracer(t Tracer) Option { return func(p *Pipeline) { p.tracer = t } }

// WithClock installs a non-default Clock (tests only).
func WithClock(c Clock) Option { return func(p *Pipeline) { p.clock = c } }

// WithCPUAffinity pins the worker and poller goroutines to the given CPU
// indices; -1 leaves a goroutine unpinned.
func WithCPUAffinity(workerCPU, pollerCPU int) Option {
	return func(p *Pipeline) { p.workerCPU, p.pollerCPU = workerCPU, pollerCPU }
}

// NewPipeline builds a Pipeline dispatching into d, with a submission
// queue depth of queueDepth, and starts its worker and poller goroutines.
func NewPipeline(d Dispatcher, queueDepth int, opts ...Option) *Pipeline {
	p := &Pipeline{
		dispatcher: d,
		clock:      SystemClock,
		tracer:     NopTracer{},
		submit:     make(chan *Request, queueDepth),
		done:       make(chan struct{}),
		workerCPU:  -1,
		pollerCPU:  -1,
	}
	for _, opt := range opts {
		opt(p)
	}

	completion := make(chan *Request, queueDepth)
	go p.runWorker(completion)
	go p.runPoller(completion)
	return p
}

// Submit enqueues r for dispatch, blocking if the queue is full. If
// r.Block, the caller should wait on r.Done; r.Latency is valid once Done
// is closed.
func (p *Pipeline) Submit(r *Request) {
	p.tracer.OnSubmit(r)
	p.submit <- r
}

// TrySubmit enqueues r without blocking, reporting false if the
// submission queue is currently full — the Go equivalent of the
// original's ring_is_full/REQ_NOWAIT check.
func (p *Pipeline) TrySubmit(r *Request) bool {
	select {
	case p.submit <- r:
		p.tracer.OnSubmit(r)
		return true
	default:
		return false
	}
}

// Close stops the worker and poller goroutines. Pending requests are
// abandoned, matching the original's unconditional kthread_stop teardown.
func (p *Pipeline) Close() { close(p.done) }

func (p *Pipeline) runWorker(completion chan<- *Request) {
	if err := pinToCPU(p.workerCPU); err != nil {
		p.workerCPU = -1
	}
	for {
		select {
		case <-p.done:
			return
		case r := <-p.submit:
			r.SubmitTime = p.clock.NowNanos()
			lat, err := p.dispatcher.Dispatch(r)
			r.Latency = lat
			r.Err = err
			r.ExpireTime = r.SubmitTime + lat
			p.tracer.OnDispatch(r, lat, err)
			select {
			case completion <- r:
			case <-p.done:
				return
			}
		}
	}
}

// runPoller mirrors request_poller_thread: a blocking request is released
// the instant dispatch completes (the caller does its own latency-accurate
// sleep in the host layer using r.Latency); a non-blocking request is
// parked in the expiry heap and only released once its modeled deadline
// has actually passed.
func (p *Pipeline) runPoller(completion <-chan *Request) {
	if err := pinToCPU(p.pollerCPU); err != nil {
		p.pollerCPU = -1
	}
	pending := newPendingQueue()
	ticker := time.NewTicker(50 * time.Microsecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case r := <-completion:
			if r.Block {
				close(r.Done)
				p.tracer.OnComplete(r)
				continue
			}
			pending.insert(r)
		case <-ticker.C:
		}
		p.drainExpired(pending)
	}
}

func (p *Pipeline) drainExpired(pending *pendingQueue) {
	now := p.clock.NowNanos()
	for pending.len() > 0 {
		r, ok := pending.peekExpired(now)
		if !ok {
			return
		}
		if r.Outstanding != nil {
			if r.Outstanding.Add(-1) > 0 {
				continue
			}
		}
		if r.OnComplete != nil {
			r.OnComplete(r)
		}
		p.tracer.OnComplete(r)
	}
}
