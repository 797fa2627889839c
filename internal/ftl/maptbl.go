// Package ftl implements the flash translation layer: the logical→physical
// map, the write pointer / page allocator, garbage collection, and the
// page-granularity block read/write paths described in spec.md §4.1–§4.3,
// §4.7.
package ftl

import (
	"fmt"

	"github.com/pollux006/bytefs-go/internal/nand"
)

// MapTable holds the forward (LPN→PPA) and reverse (PPA→LPN) maps. Mutual
// consistency (spec.md §3 "Map tables" invariant) is the caller's
// responsibility: both sides must be updated within the same critical
// section, which is why every mutator here is unexported and only called
// from FTL methods holding the allocation mutex.
type MapTable struct {
	maptbl []uint64 // index: lpn, value: flat ppa or nand.UnmappedPPA
	rmap   []uint64 // index: flat ppa, value: lpn or nand.InvalidLPN
	ttPgs  uint64
}

func newMapTable(ttPgs int) *MapTable {
	mt := &MapTable{
		maptbl: make([]uint64, ttPgs),
		rmap:   make([]uint64, ttPgs),
		ttPgs:  uint64(ttPgs),
	}
	mt.resetLocked()
	return mt
}

func (mt *MapTable) resetLocked() {
	for i := range mt.maptbl {
		mt.maptbl[i] = nand.UnmappedPPA
	}
	for i := range mt.rmap {
		mt.rmap[i] = nand.InvalidLPN
	}
}

func (mt *MapTable) assertLPN(lpn uint64) {
	if lpn >= mt.ttPgs {
		panic(fmt.Sprintf("ftl: LPN %d exceeds tt_pgs %d", lpn, mt.ttPgs))
	}
}

// get returns the flat PPA mapped to lpn, or nand.UnmappedPPA.
func (mt *MapTable) get(lpn uint64) uint64 {
	mt.assertLPN(lpn)
	return mt.maptbl[lpn]
}

// set records lpn → realppa.
func (mt *MapTable) set(lpn, realppa uint64) {
	mt.assertLPN(lpn)
	mt.maptbl[lpn] = realppa
}

// rmapGet returns the LPN mapped to the page at realppa, or nand.InvalidLPN.
func (mt *MapTable) rmapGet(realppa uint64) uint64 {
	return mt.rmap[realppa]
}

// rmapSet records realppa → lpn.
func (mt *MapTable) rmapSet(lpn, realppa uint64) {
	mt.rmap[realppa] = lpn
}

// rmapClear removes the reverse mapping for realppa.
func (mt *MapTable) rmapClear(realppa uint64) {
	mt.rmap[realppa] = nand.InvalidLPN
}
