package cache

import "github.com/pollux006/bytefs-go/internal/nand"

// lruSlot is one entry of the fully-associative cache: a doubly-linked
// list node, but array-indexed since the slot count is fixed at
// construction.
type lruSlot struct {
	lpn   uint64
	dirty bool
	prev  int // -1 = none
	next  int // -1 = none
}

// LRUEngine is the fully-associative LRU cache engine of spec.md §4.4: a
// doubly-linked list ordered head(=least-recently-used, the next eviction
// victim) → tail(=most-recently-used), plus a Robin Hood hash index from
// LPN to slot (spec.md §4.4.1).
type LRUEngine struct {
	slots []lruSlot
	head  int // LRU end — eviction victim
	tail  int // MRU end
	index *robinHoodMap
}

// NewLRUEngine builds an LRU engine with n slots, all initially unbound.
func NewLRUEngine(n int) *LRUEngine {
	e := &LRUEngine{
		slots: make([]lruSlot, n),
		index: newRobinHoodMap(n),
	}
	for i := range e.slots {
		e.slots[i] = lruSlot{lpn: nand.InvalidLPN, prev: i - 1, next: i + 1}
	}
	e.slots[n-1].next = -1
	e.head = 0
	e.tail = n - 1
	return e
}

func (e *LRUEngine) NumSlots() int { return len(e.slots) }

func (e *LRUEngine) Lookup(lpn uint64) (int, bool) {
	return e.index.Get(lpn)
}

// unlink removes slot from wherever it sits in the list.
func (e *LRUEngine) unlink(slot int) {
	s := &e.slots[slot]
	if s.prev != -1 {
		e.slots[s.prev].next = s.next
	} else {
		e.head = s.next
	}
	if s.next != -1 {
		e.slots[s.next].prev = s.prev
	} else {
		e.tail = s.prev
	}
	s.prev, s.next = -1, -1
}

// pushTail appends slot at the MRU end.
func (e *LRUEngine) pushTail(slot int) {
	s := &e.slots[slot]
	s.prev = e.tail
	s.next = -1
	if e.tail != -1 {
		e.slots[e.tail].next = slot
	}
	e.tail = slot
	if e.head == -1 {
		e.head = slot
	}
}

// Touch moves slot to the MRU end — spec.md §4.4 step 2 "move to tail of
// list", grounded on the original's advance_buffer_status.
func (e *LRUEngine) Touch(slot int) {
	if e.tail == slot {
		return // already MRU
	}
	e.unlink(slot)
	e.pushTail(slot)
}

func (e *LRUEngine) MarkDirty(slot int) {
	e.slots[slot].dirty = true
}

// ReserveSlot evicts the head (LRU) slot, rebinds it to lpn, and moves it
// to the MRU end.
func (e *LRUEngine) ReserveSlot(lpn uint64) (slot int, evictedLPN uint64, hadEviction bool, evictedDirty bool) {
	slot = e.head
	s := &e.slots[slot]

	if s.lpn != nand.InvalidLPN {
		evictedLPN = s.lpn
		hadEviction = true
		evictedDirty = s.dirty
		e.index.Delete(s.lpn)
	}

	s.lpn = lpn
	s.dirty = false
	e.index.Put(lpn, slot)
	e.Touch(slot)
	return slot, evictedLPN, hadEviction, evictedDirty
}
