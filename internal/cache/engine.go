// Package cache implements the page-granularity DRAM cache ("tobssd
// buffer") of spec.md §4.4 that stands in front of NAND and backs the
// byte-addressable host interface. Two interchangeable engines — set-
// associative and fully-associative LRU — share one trait so the byte
// path (write_buffer/read_buffer) is identical regardless of which backs
// it (spec.md §9 "Two cache organizations").
package cache

// Engine is the single cache trait of spec.md §9.
type Engine interface {
	// Lookup reports whether lpn is currently bound to a slot.
	Lookup(lpn uint64) (slot int, hit bool)
	// ReserveSlot picks a slot to hold lpn — a free one if available,
	// otherwise a victim per the engine's replacement policy — and binds
	// it to lpn. If a different LPN previously occupied the slot,
	// evictedLPN/hadEviction/evictedDirty describe what must be written
	// back before the slot is reused.
	ReserveSlot(lpn uint64) (slot int, evictedLPN uint64, hadEviction bool, evictedDirty bool)
	// MarkDirty records that slot's contents were written by the host.
	MarkDirty(slot int)
	// Touch updates recency bookkeeping after a hit (no-op where the
	// engine's replacement policy doesn't use recency).
	Touch(slot int)
}

// SlotCount is implemented by engines that expose their fixed capacity.
type SlotCount interface {
	NumSlots() int
}

var _ Engine = (*LRUEngine)(nil)
var _ Engine = (*SetAssocEngine)(nil)

// Count returns N, the number of slots an engine manages.
func Count(e Engine) int {
	if sc, ok := e.(SlotCount); ok {
		return sc.NumSlots()
	}
	return 0
}
