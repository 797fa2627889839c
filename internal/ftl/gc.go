package ftl

import "github.com/pollux006/bytefs-go/internal/nand"

// GarbageCollector is the collaborator contract of spec.md §4.7: the FTL
// core invokes it from AdvanceWritePointer, and on demand from TriggerGC,
// synchronously, while the allocation mutex is already held. It may reclaim blocks by copying out
// VALID pages (re-issuing writes through the same §4.1 path) and erasing
// source blocks; after it returns, getNextFreeBlk must succeed.
type GarbageCollector interface {
	// ShouldStart reports whether free capacity has fallen low enough to
	// trigger a collection pass.
	ShouldStart(f *FTL) bool
	// Run performs one collection pass.
	Run(f *FTL) error
}

// DefaultGC reclaims GC-candidate blocks, in the order they became
// candidates, by copying their still-VALID pages forward (through the
// ordinary write path, so they get fresh PPAs and updated maps) and erasing
// each source block. Candidates are not ranked by invalid-page count.
// MinFreeBlocks is the absolute number of blocks that must remain free;
// below it, ShouldStart fires.
type DefaultGC struct {
	MinFreeBlocks int
}

// NewDefaultGC returns a GC that triggers once fewer than minFreeBlocks
// blocks remain free device-wide.
func NewDefaultGC(minFreeBlocks int) *DefaultGC {
	return &DefaultGC{MinFreeBlocks: minFreeBlocks}
}

func (g *DefaultGC) ShouldStart(f *FTL) bool {
	return f.alloc.freeBlockCount() < g.MinFreeBlocks
}

// Run reclaims GC-candidate blocks while fewer than MinFreeBlocks blocks
// are free, stopping once that many are free or candidates are exhausted.
// When MinFreeBlocks or more are already free it reclaims nothing.
func (g *DefaultGC) Run(f *FTL) error {
	for f.alloc.freeBlockCount() < g.MinFreeBlocks {
		candidates := f.alloc.popGCCandidates()
		if len(candidates) == 0 {
			return nil // nothing left to reclaim; caller may still be fatal-free-block-exhausted
		}
		for _, b := range candidates {
			if err := g.reclaim(f, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// reclaim copies every still-VALID page in b to a new location and erases
// b, returning it to the free pool.
func (g *DefaultGC) reclaim(f *FTL, b *nand.Block) error {
	for pgIdx := range b.Pages {
		pg := &b.Pages[pgIdx]
		if pg.Status != nand.PageValid {
			continue
		}
		ppa := nand.PPA{Ch: b.ChIdx, Lun: b.LunIdx, Blk: b.BlkIdx, Pg: pgIdx}
		f.dev.Params.ToFlat(&ppa)
		lpn := f.maps.rmapGet(ppa.RealPPA)
		if lpn == nand.InvalidLPN {
			continue
		}
		buf := make([]byte, nand.PGSZ)
		if err := f.backend.ReadPage(ppa.RealPPA, buf); err != nil {
			return err
		}
		// Re-issue through the ordinary write path, as GC traffic, so it
		// gets a fresh PPA and updated maps; this may recurse into GC
		// again if capacity is still critically low, which is fine since
		// reclaim always frees at least one block's worth of pages net.
		if _, err := f.writeLPNLocked(lpn, buf, nand.CmdWriteGC, 0); err != nil {
			return err
		}
	}
	b.MarkFree()
	f.alloc.addFreeBlock(b)
	return nil
}
