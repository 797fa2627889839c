package nand

import (
	"fmt"
	"sync"
)

// PageStatus is the lifecycle state of one NAND page (spec.md §3 "NAND page").
type PageStatus uint8

const (
	PageFree PageStatus = iota
	PageValid
	PageInvalid
)

// Page is one physical flash page.
type Page struct {
	Index    int
	Status   PageStatus
	Checksum uint32
}

// Block is a group of pages erased together.
type Block struct {
	ChIdx, LunIdx, BlkIdx int
	Pages                 []Page
	ValidCount            int // vpc
	InvalidCount          int // ipc
	EraseCount            int
	WritePointer          int // wp: pages written since last erase
	GCCandidate           bool
}

func newBlock(ch, lun, blk, pagesPerBlock int) *Block {
	b := &Block{ChIdx: ch, LunIdx: lun, BlkIdx: blk, Pages: make([]Page, pagesPerBlock)}
	for i := range b.Pages {
		b.Pages[i].Index = i
	}
	return b
}

// MarkFree resets every page in the block to FREE, zeros vpc/ipc, bumps the
// erase count and clears the GC-candidate flag — spec.md §4.7 mark_block_free.
func (b *Block) MarkFree() {
	for i := range b.Pages {
		b.Pages[i].Status = PageFree
		b.Pages[i].Checksum = 0
	}
	b.ValidCount = 0
	b.InvalidCount = 0
	b.EraseCount++
	b.WritePointer = 0
	b.GCCandidate = false
}

// Lun is a single flash die: a block array plus the busy-window clock that
// the latency model advances.
type Lun struct {
	ChIdx, LunIdx   int
	Blocks          []*Block
	NextAvailTime   uint64 // ns, monotonic non-decreasing
	Busy            bool
}

// Channel groups LUNs sharing one transfer bus.
type Channel struct {
	ChIdx         int
	Luns          []*Lun
	NextAvailTime uint64
	Busy          bool
}

// Device is the full NAND hierarchy: channels × LUNs × blocks × pages.
type Device struct {
	Params Params

	Channels []*Channel

	statusMu sync.Mutex // serializes all advance_status calls (spec.md §4.2)
}

// NewDevice builds an empty (all-FREE) NAND hierarchy for the given params.
func NewDevice(p Params) *Device {
	d := &Device{Params: p}
	d.Channels = make([]*Channel, p.NumChannels)
	for ch := 0; ch < p.NumChannels; ch++ {
		c := &Channel{ChIdx: ch, Luns: make([]*Lun, p.LunsPerCh)}
		for lun := 0; lun < p.LunsPerCh; lun++ {
			l := &Lun{ChIdx: ch, LunIdx: lun, Blocks: make([]*Block, p.BlocksPerLun)}
			for blk := 0; blk < p.BlocksPerLun; blk++ {
				l.Blocks[blk] = newBlock(ch, lun, blk, p.PagesPerBlock)
			}
			c.Luns[lun] = l
		}
		d.Channels[ch] = c
	}
	return d
}

// Reset rebuilds the device to its post-init state in place (spec.md
// invariant 6: "After ssd_reset, all tables match the post-init state").
func (d *Device) Reset() {
	fresh := NewDevice(d.Params)
	d.Channels = fresh.Channels
}

func (d *Device) lun(ppa PPA) *Lun {
	return d.Channels[ppa.Ch].Luns[ppa.Lun]
}

// Block returns the block addressed by ppa.
func (d *Device) Block(ppa PPA) *Block {
	return d.lun(ppa).Blocks[ppa.Blk]
}

// Page returns a pointer to the page addressed by ppa.
func (d *Device) Page(ppa PPA) *Page {
	return &d.Block(ppa).Pages[ppa.Pg]
}

// CmdType distinguishes the kind of NAND access for advance_status.
type CmdType uint8

const (
	CmdRead CmdType = iota
	CmdWriteUser
	CmdWriteGC
	CmdErase
)

// AdvanceStatus updates ppa's LUN busy window for an operation beginning at
// stime and returns the resulting request latency — spec.md §4.2.
//
// nand_stime = max(lun.next_avail, stime); lun.next_avail advances by the
// per-op latency from nand_stime; the returned latency is measured from the
// caller's stime, not from nand_stime, so queued-behind-busy-window time is
// charged to the request.
func (d *Device) AdvanceStatus(ppa PPA, cmd CmdType, stime uint64) uint64 {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()

	lun := d.lun(ppa)
	nandStime := stime
	if lun.NextAvailTime > nandStime {
		nandStime = lun.NextAvailTime
	}

	var lat uint64
	switch cmd {
	case CmdRead:
		lat = d.Params.PageReadLatency
	case CmdWriteUser, CmdWriteGC:
		lat = d.Params.PageWriteLatency
	case CmdErase:
		lat = d.Params.BlockEraseLatency
	default:
		panic(fmt.Sprintf("nand: unknown cmd type %d", cmd))
	}

	lun.NextAvailTime = nandStime + lat
	return lun.NextAvailTime - stime
}
