package ftl

import (
	"fmt"
	"sync"

	"github.com/pollux006/bytefs-go/internal/nand"
)

// FTL ties the NAND device, the map tables, the write pointer/allocator and
// the GC collaborator together, and implements the page-aligned block
// read/write paths of spec.md §4.3.
//
// allocMu is the single "allocation mutex" of spec.md §5: it is held across
// GetNewPage/AdvanceWritePointer and — per the open question in spec.md §9
// — across the accompanying map/vpc/ipc mutation too, so that page-state
// transitions and their counters stay atomic by construction rather than by
// convention.
type FTL struct {
	dev     *nand.Device
	backend nand.Backend
	maps    *MapTable
	alloc   *blockAllocator
	gc      GarbageCollector

	allocMu sync.Mutex
	wp      WritePointer
}

// Config bundles the dependencies New needs.
type Config struct {
	Device  *nand.Device
	Backend nand.Backend
	GC      GarbageCollector // nil uses NewDefaultGC(totalBlocks/20) i.e. 5% headroom
}

// New builds an FTL over an already-constructed NAND device and backend.
func New(cfg Config) *FTL {
	f := &FTL{
		dev:     cfg.Device,
		backend: cfg.Backend,
		maps:    newMapTable(cfg.Device.Params.TotalPages),
		alloc:   newBlockAllocator(cfg.Device),
		gc:      cfg.GC,
	}
	if f.gc == nil {
		threshold := cfg.Device.Params.TotalBlocks / 20
		if threshold < 1 {
			threshold = 1
		}
		f.gc = NewDefaultGC(threshold)
	}
	f.initWritePointer()
	return f
}

// Reset rebuilds every table (maptbl/rmap/write-pointer/allocator) and the
// underlying NAND device to the post-init state — spec.md §8 invariant 6.
func (f *FTL) Reset() {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	f.dev.Reset()
	if r, ok := f.backend.(interface{ Reset() }); ok {
		r.Reset()
	}
	f.maps.resetLocked()
	f.alloc.rebuild()
	f.initWritePointer()
}

func (f *FTL) initWritePointer() {
	blk := f.alloc.getNextFreeBlk()
	if blk == nil {
		panic("ftl: no free blocks at init")
	}
	f.wp = WritePointer{Ch: blk.ChIdx, Lun: blk.LunIdx, Blk: blk.BlkIdx, Pg: 0, block: blk}
}

// ── Address translation (spec.md §4.1) ───────────────────────────────────

// GetMaptblEnt returns the PPA mapped to lpn.
func (f *FTL) GetMaptblEnt(lpn uint64) nand.PPA {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	real := f.maps.get(lpn)
	if real == nand.UnmappedPPA {
		return nand.Unmapped()
	}
	return f.dev.Params.FlatPPA(real)
}

// GetRmapEnt returns the LPN mapped to ppa, or nand.InvalidLPN.
func (f *FTL) GetRmapEnt(ppa nand.PPA) uint64 {
	f.dev.Params.ToFlat(&ppa)
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	return f.maps.rmapGet(ppa.RealPPA)
}

// GetNewPage returns the PPA at the current write-pointer position without
// advancing it.
func (f *FTL) GetNewPage() nand.PPA {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	return f.getNewPageLocked()
}

func (f *FTL) getNewPageLocked() nand.PPA {
	ppa := nand.PPA{Ch: f.wp.Ch, Lun: f.wp.Lun, Blk: f.wp.Blk, Pg: f.wp.Pg}
	f.dev.Params.ToFlat(&ppa)
	return ppa
}

// AdvanceWritePointer advances the page index within the current block; on
// reaching pgs_per_blk it requests the next free block, re-seats the
// pointer, and — if capacity has fallen below the GC threshold — invokes
// the GC collaborator synchronously. Spec.md §4.1.
func (f *FTL) AdvanceWritePointer() {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	f.advanceWritePointerLocked()
}

func (f *FTL) advanceWritePointerLocked() {
	f.wp.Pg++
	f.wp.block.WritePointer = f.wp.Pg
	if f.wp.Pg < f.dev.Params.PagesPerBlock {
		return
	}
	blk := f.alloc.getNextFreeBlk()
	if blk == nil {
		if f.gc.ShouldStart(f) {
			if err := f.gc.Run(f); err != nil {
				panic(fmt.Sprintf("ftl: GC failed: %v", err))
			}
		}
		blk = f.alloc.getNextFreeBlk()
		if blk == nil {
			panic("ftl: free-block exhaustion GC could not resolve")
		}
	}
	f.wp = WritePointer{Ch: blk.ChIdx, Lun: blk.LunIdx, Blk: blk.BlkIdx, Pg: 0, block: blk}
	if f.gc.ShouldStart(f) {
		if err := f.gc.Run(f); err != nil {
			panic(fmt.Sprintf("ftl: GC failed: %v", err))
		}
	}
}

// invalidateLocked marks the old mapping (if any) of lpn as invalid and
// registers its block as a GC candidate — spec.md §4.1 invariant
// maintenance step 1.
func (f *FTL) invalidateLocked(lpn uint64) {
	oldReal := f.maps.get(lpn)
	if oldReal == nand.UnmappedPPA {
		return
	}
	oldPPA := f.dev.Params.FlatPPA(oldReal)
	blk := f.dev.Block(oldPPA)
	pg := f.dev.Page(oldPPA)
	if pg.Status == nand.PageValid {
		pg.Status = nand.PageInvalid
		if blk.ValidCount > 0 {
			blk.ValidCount--
		}
		blk.InvalidCount++
	}
	f.alloc.markGCCandidate(blk)
	f.maps.rmapClear(oldReal)
}

// ── Block read/write paths (spec.md §4.3) ────────────────────────────────

// WriteLPN writes one page of data to lpn, allocating a fresh PPA,
// returning the latency charged to the request.
func (f *FTL) WriteLPN(lpn uint64, data []byte, stime uint64) (uint64, error) {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	return f.writeLPNLocked(lpn, data, nand.CmdWriteUser, stime)
}

func (f *FTL) writeLPNLocked(lpn uint64, data []byte, cmd nand.CmdType, stime uint64) (uint64, error) {
	f.invalidateLocked(lpn)

	ppa := f.getNewPageLocked()
	f.maps.set(lpn, ppa.RealPPA)
	f.maps.rmapSet(lpn, ppa.RealPPA)

	pg := f.dev.Page(ppa)
	pg.Status = nand.PageValid
	blk := f.dev.Block(ppa)
	blk.ValidCount++

	f.advanceWritePointerLocked()

	lat := f.dev.AdvanceStatus(ppa, cmd, stime)

	if err := f.backend.WritePage(ppa.RealPPA, data); err != nil {
		return 0, err
	}
	pg.Checksum = nand.Checksum(data)

	return lat, nil
}

// ReadLPN reads one page of data from lpn into buf. If lpn is unmapped the
// read is skipped (spec.md §4.1: "no data returned for that page") and a
// zero latency, ok=false is returned.
func (f *FTL) ReadLPN(lpn uint64, buf []byte, stime uint64) (lat uint64, ok bool, err error) {
	f.allocMu.Lock()
	real := f.maps.get(lpn)
	f.allocMu.Unlock()
	if real == nand.UnmappedPPA {
		return 0, false, nil
	}
	ppa := f.dev.Params.FlatPPA(real)
	pg := f.dev.Page(ppa)
	if pg.Status != nand.PageValid {
		return 0, false, nil
	}

	lat = f.dev.AdvanceStatus(ppa, nand.CmdRead, stime)

	if err := f.backend.ReadPage(ppa.RealPPA, buf); err != nil {
		return lat, true, err
	}
	if !nand.VerifyChecksum(buf, pg.Checksum) {
		// Soft corruption signal: logged by the caller, not fatal here.
		return lat, true, errChecksumMismatch{lpn: lpn, ppa: ppa.RealPPA}
	}
	return lat, true, nil
}

// errChecksumMismatch is a soft, non-fatal signal (spec.md §4.3, §7).
type errChecksumMismatch struct {
	lpn uint64
	ppa uint64
}

func (e errChecksumMismatch) Error() string {
	return fmt.Sprintf("ftl: checksum mismatch reading lpn=%d ppa=%d", e.lpn, e.ppa)
}

// Device exposes the underlying NAND device (used by housekeeping/control).
func (f *FTL) Device() *nand.Device { return f.dev }

// FreeBlockCount reports the device-wide count of unallocated blocks.
func (f *FTL) FreeBlockCount() int {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	return f.alloc.freeBlockCount()
}

// GCCandidateCount reports the number of blocks currently flagged for GC.
func (f *FTL) GCCandidateCount() int {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	return len(f.alloc.gcList)
}

// TriggerGC runs one pass of the GC collaborator on demand (used by the
// control plane for testing/administration). It does not bypass the
// collaborator's own threshold: with DefaultGC the pass reclaims blocks
// only while fewer than MinFreeBlocks blocks are free.
func (f *FTL) TriggerGC() error {
	f.allocMu.Lock()
	defer f.allocMu.Unlock()
	return f.gc.Run(f)
}
