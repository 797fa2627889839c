package event

// Tracer observes the request pipeline without participating in it — the
// Go counterpart of the original's bytefs_debug_bio hooks, which logged
// every submitted bio's sector range and flags for offline analysis.
// NopTracer is the default; a diagnostic build can supply one that
// forwards to a log or a ring buffer.
type Tracer interface {
	OnSubmit(r *Request)
	OnDispatch(r *Request, latency uint64, err error)
	OnComplete(r *Request)
}

type NopTracer struct{}

func (NopTracer) OnSubmit(*Request)                  {}
func (NopTracer) OnDispatch(*Request, uint64, error) {}
func (NopTracer) OnComplete(*Request)                {}
