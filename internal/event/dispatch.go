package event

import "github.com/pollux006/bytefs-go/internal/ftl"

// Dispatcher runs a Request's page range against the FTL and reports the
// latency to charge the request — the Go counterpart of the original's
// ssd_read/ssd_write: it loops LPN..LPN+NLB, charging the MAX per-page
// latency across the range for both reads and writes (never the sum).
type Dispatcher interface {
	Dispatch(r *Request) (uint64, error)
}

// FTLDispatcher dispatches page-aligned block requests straight to an FTL,
// bypassing the DRAM cache — the block path never touches the byte cache
// in the original, only nvme_issue's byte_issue sibling does.
type FTLDispatcher struct {
	FTL *ftl.FTL
}

// Dispatch charges every page against the same SubmitTime (the per-LUN
// busy-window model in the NAND device already serializes overlapping
// accesses) and reports the MAX per-page latency across the range for
// both reads and writes, matching the original's ssd_read/ssd_write.
func (d FTLDispatcher) Dispatch(r *Request) (uint64, error) {
	pgsz := len(r.Data) / r.NLB
	var maxlat uint64
	var firstErr error

	for i := 0; i < r.NLB; i++ {
		lpn := r.LPN + uint64(i)
		buf := r.Data[i*pgsz : (i+1)*pgsz]

		switch r.Op {
		case OpRead:
			lat, ok, err := d.FTL.ReadLPN(lpn, buf, r.SubmitTime)
			if !ok {
				continue
			}
			if lat > maxlat {
				maxlat = lat
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case OpWrite:
			lat, err := d.FTL.WriteLPN(lpn, buf, r.SubmitTime)
			if err != nil {
				return maxlat, err
			}
			if lat > maxlat {
				maxlat = lat
			}
		}
	}
	return maxlat, firstErr
}
