package ftl

import (
	"github.com/pollux006/bytefs-go/internal/nand"
)

// WritePointer names the next physical page to be programmed — spec.md §3
// "Write pointer".
type WritePointer struct {
	Ch, Lun, Blk, Pg int
	block            *nand.Block
}

// blockAllocator hands out free blocks on demand, round-robin across
// channels, and tracks the free-block count the GC threshold checks
// against: an in-memory set of free blocks plus a cursor, kept as a
// per-LUN list instead of a single global one because NAND blocks are
// LUN-local.
type blockAllocator struct {
	dev    *nand.Device
	free   map[[3]int][]*nand.Block // key: {ch,lun} -> free blocks in that lun
	nextCh int
	gcList []*nand.Block // GC-candidate blocks (at least one invalid page)
}

func newBlockAllocator(dev *nand.Device) *blockAllocator {
	a := &blockAllocator{dev: dev, free: make(map[[3]int][]*nand.Block)}
	a.rebuild()
	return a
}

func (a *blockAllocator) rebuild() {
	a.free = make(map[[3]int][]*nand.Block)
	a.gcList = nil
	a.nextCh = 0
	for _, ch := range a.dev.Channels {
		for _, lun := range ch.Luns {
			key := [3]int{ch.ChIdx, lun.LunIdx, 0}
			for _, b := range lun.Blocks {
				a.free[key] = append(a.free[key], b)
			}
		}
	}
}

// freeBlockCount returns the total number of unallocated blocks across the
// device — what bytefs_should_start_gc inspects.
func (a *blockAllocator) freeBlockCount() int {
	n := 0
	for _, blks := range a.free {
		n += len(blks)
	}
	return n
}

// getNextFreeBlk returns a free block, advancing the round-robin channel
// cursor — spec.md §4.1 "bytefs_get_next_free_blk", "consecutive new-block
// requests rotate channel indices" is the testable property preserved here.
func (a *blockAllocator) getNextFreeBlk() *nand.Block {
	nch := a.dev.Params.NumChannels
	for tries := 0; tries < nch; tries++ {
		ch := (a.nextCh + tries) % nch
		for lun := 0; lun < a.dev.Params.LunsPerCh; lun++ {
			key := [3]int{ch, lun, 0}
			if blks := a.free[key]; len(blks) > 0 {
				b := blks[len(blks)-1]
				a.free[key] = blks[:len(blks)-1]
				a.nextCh = (ch + 1) % nch
				return b
			}
		}
	}
	return nil // exhausted — fatal per spec.md §7, caller must have run GC first
}

// addFreeBlock returns an erased block to the free pool (used by GC after
// reclaiming a block).
func (a *blockAllocator) addFreeBlock(b *nand.Block) {
	key := [3]int{b.ChIdx, b.LunIdx, 0}
	a.free[key] = append(a.free[key], b)
}

// markGCCandidate adds b to the GC-candidate list if not already present.
func (a *blockAllocator) markGCCandidate(b *nand.Block) {
	if b.GCCandidate {
		return
	}
	b.GCCandidate = true
	a.gcList = append(a.gcList, b)
}

// popGCCandidates returns and clears the current GC-candidate list.
func (a *blockAllocator) popGCCandidates() []*nand.Block {
	out := a.gcList
	a.gcList = nil
	return out
}
