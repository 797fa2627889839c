// Package host implements the NVMe-style host issue entry points of
// spec.md §4.2/§4.4: block-aligned page requests that go through the
// request pipeline, sector-granular requests that read-modify-write
// around page boundaries, and byte-addressable requests that go straight
// through the DRAM cache.
package host

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/pollux006/bytefs-go/internal/cache"
	"github.com/pollux006/bytefs-go/internal/event"
	"github.com/pollux006/bytefs-go/internal/nand"
)

// dmaFloorNanos is the fixed completion overhead nvme_issue/nvme_issue_wait
// subtract from a request's modeled latency before sleeping — below this
// floor the request is considered to complete "for free" on the DMA path.
const dmaFloorNanos = 65000

// ErrOutOfRange is returned when a requested LBA/page range falls outside
// the device's addressable page space.
var ErrOutOfRange = errors.New("host: lba out of range")

// ErrQueueFull is returned by the non-blocking issue path when the
// pipeline's submission queue is saturated.
var ErrQueueFull = errors.New("host: submission queue full")

// NvmeOp mirrors the original's NVME_CMD_READ/NVME_CMD_WRITE opcodes.
type NvmeOp int

const (
	NvmeCmdRead  NvmeOp = 2
	NvmeCmdWrite NvmeOp = 1
)

// NvmeCmd is the Go analogue of bytefs_init_nvme's NvmeCmd struct: a
// naive NVMe submission-queue entry with the payload parked at PRP1
// (there is never a PRP2 — transfers here are always one contiguous
// Go slice, never a scatter-gather list). It exists for callers that
// want to model the wire command itself; the pipeline does not consume
// it, since the issue methods build their event.Request directly.
type NvmeCmd struct {
	Opcode NvmeOp
	NSID   uint32
	LBA    uint64
	NLB    uint32
	PRP1   []byte // payload buffer, naive single-PRP DMA
}

// NewNvmeCmd builds an NvmeCmd the way bytefs_init_nvme does: the
// fields derived from (op, lba, nlb, addr) are stamped and NSID is fixed
// at 1. NvmeCmd has no fuse/psdt/cid/mptr/prp2 fields; they are
// implicitly zero.
func NewNvmeCmd(op NvmeOp, lba uint64, nlb uint32, addr []byte) NvmeCmd {
	return NvmeCmd{Opcode: op, NSID: 1, LBA: lba, NLB: nlb, PRP1: addr}
}

// Host is the SSD's host-facing surface: the request pipeline for
// page-aligned block I/O, and the DRAM cache for byte-addressable I/O.
type Host struct {
	pipeline *event.Pipeline
	cache    *cache.Buffer
	params   *nand.Params
	clock    event.Clock
}

// New builds a Host over an already-running pipeline and cache.
func New(pipeline *event.Pipeline, buf *cache.Buffer, params *nand.Params) *Host {
	return &Host{pipeline: pipeline, cache: buf, params: params, clock: event.SystemClock}
}

func (h *Host) lbaLegal(lpn uint64) bool { return lpn < uint64(h.params.TotalPages) }

// NvmeIssue is the legacy blocking page-aligned interface: submit, wait
// for dispatch, then sleep out whatever latency the DMA floor doesn't
// already account for.
func (h *Host) NvmeIssue(write bool, lba, nlb uint64, buf []byte) (int, error) {
	if nlb == 0 {
		return 0, nil
	}
	if !h.lbaLegal(lba) || !h.lbaLegal(lba+nlb-1) {
		return 0, ErrOutOfRange
	}
	r := h.newPageRequest(write, lba, nlb, buf, true)
	h.pipeline.Submit(r)
	<-r.Done
	h.sleepPastFloor(r)
	if r.Err != nil {
		return 0, r.Err
	}
	return int(nlb), nil
}

// NvmeIssueWait is NvmeIssue's callback-carrying sibling: it blocks the
// same way, but the caller supplies onComplete (the bio_endio analogue)
// to run after the sleep, instead of relying on a return value.
func (h *Host) NvmeIssueWait(write bool, lba, nlb uint64, buf []byte, onComplete func(error)) error {
	if nlb == 0 {
		return nil
	}
	if !h.lbaLegal(lba) || !h.lbaLegal(lba+nlb-1) {
		return ErrOutOfRange
	}
	r := h.newPageRequest(write, lba, nlb, buf, true)
	h.pipeline.Submit(r)
	<-r.Done
	h.sleepPastFloor(r)
	if onComplete != nil {
		onComplete(r.Err)
	}
	return r.Err
}

// NvmeIssueNoWait submits a page-aligned request without blocking;
// once the pipeline's poller observes the request's modeled deadline has
// passed, outstanding (if non-nil) is decremented, and onComplete is
// invoked if outstanding is nil or that decrement brought it to zero.
// allowBusy mirrors the original's REQ_NOWAIT bio flag: when true and the
// pipeline's queue is full, ErrQueueFull is returned instead of blocking
// on submission.
func (h *Host) NvmeIssueNoWait(write bool, lba, nlb uint64, buf []byte, outstanding *atomic.Int64, onComplete func(*event.Request), allowBusy bool) error {
	if nlb == 0 {
		return nil
	}
	if !h.lbaLegal(lba) || !h.lbaLegal(lba+nlb-1) {
		return ErrOutOfRange
	}
	r := h.newPageRequest(write, lba, nlb, buf, false)
	r.Outstanding = outstanding
	r.OnComplete = onComplete

	if allowBusy {
		if !h.pipeline.TrySubmit(r) {
			return ErrQueueFull
		}
		return nil
	}
	h.pipeline.Submit(r)
	return nil
}

func (h *Host) newPageRequest(write bool, lba, nlb uint64, buf []byte, block bool) *event.Request {
	op := event.OpRead
	if write {
		op = event.OpWrite
	}
	return event.NewRequest(op, lba, int(nlb), buf, block)
}

// sleepPastFloor sleeps out whatever latency exceeds the fixed DMA
// completion floor, matching nvme_issue's `expire_time >= 65000 + s_time`
// check.
func (h *Host) sleepPastFloor(r *event.Request) {
	if r.Latency < dmaFloorNanos {
		return
	}
	time.Sleep(time.Duration(r.Latency-dmaFloorNanos) * time.Nanosecond)
}

// NvmeIssueSectorWait implements the sector-granular read-modify-write
// path: it pads [secStart, secStart+numSec) out to whole pages, issues a
// blocking page read, copies the caller's sectors out of (reads) or into
// (writes) that padded buffer, and for writes issues a second blocking
// page write of the spliced buffer.
func (h *Host) NvmeIssueSectorWait(write bool, secStart, numSec int64, buf []byte) error {
	const secPerPage = int64(nand.NumSecPerPage)

	firstPage := uint64(secStart / secPerPage)
	lastSec := secStart + numSec
	frontPad := secStart % secPerPage
	backPad := (secPerPage - lastSec%secPerPage) % secPerPage
	nPages := (numSec + frontPad + backPad) / secPerPage

	tmp := make([]byte, int(nPages)*nand.PGSZ)

	if err := h.NvmeIssueWait(false, firstPage, uint64(nPages), tmp, nil); err != nil {
		return err
	}

	off := frontPad * int64(nand.SectorSize)
	n := numSec * int64(nand.SectorSize)

	if !write {
		copy(buf, tmp[off:off+n])
		return nil
	}

	copy(tmp[off:off+n], buf)
	return h.NvmeIssueWait(true, firstPage, uint64(nPages), tmp, nil)
}

// ByteIssue implements the byte-addressable host path: it goes straight
// through the DRAM cache (not the async pipeline, since the cache's own
// NAND-facing work is already synchronous) and sleeps out any latency the
// call's own wall-clock duration hasn't already absorbed.
func (h *Host) ByteIssue(write bool, lpa uint64, size int, buf []byte) error {
	if size == 0 {
		return nil
	}
	lpn := lpa / uint64(nand.PGSZ)
	offset := int(lpa - lpn*uint64(nand.PGSZ))

	stime := h.clock.NowNanos()
	var latency uint64
	if write {
		latency = h.cache.WriteBuffer(lpn, offset, size, buf, stime)
	} else {
		latency = h.cache.ReadBuffer(lpn, offset, size, buf, stime)
	}
	endtime := h.clock.NowNanos()

	elapsed := endtime - stime
	if elapsed >= latency {
		return nil
	}
	remaining := latency - elapsed
	if remaining > 1000 {
		time.Sleep(time.Duration(remaining) * time.Nanosecond)
	}
	return nil
}
