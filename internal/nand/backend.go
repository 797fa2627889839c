package nand

import (
	"fmt"
	"sync"
)

// Backend is the DRAM/flash-controller collaborator spec.md §1 requires:
// "a fixed-size byte arena with page-indexed read/write." The core only
// ever calls ReadPage/WritePage against it.
type Backend interface {
	ReadPage(pgidx uint64, buf []byte) error
	WritePage(pgidx uint64, buf []byte) error
}

// ArenaBackend is a flat in-memory byte buffer indexed by physical page
// number, matching the "backend_rw(pgidx, buf, dir)" contract of spec.md
// §2. It is volatile — no durability across restart, per spec.md's
// Non-goals.
type ArenaBackend struct {
	mu      sync.RWMutex
	pgsz    int
	arena   []byte
	tt_pgs  int
}

// NewArenaBackend allocates a zeroed arena sized for tt_pgs pages of pgsz
// bytes each.
func NewArenaBackend(tt_pgs, pgsz int) *ArenaBackend {
	return &ArenaBackend{
		pgsz:   pgsz,
		arena:  make([]byte, tt_pgs*pgsz),
		tt_pgs: tt_pgs,
	}
}

func (a *ArenaBackend) bounds(pgidx uint64) (int, int, error) {
	if pgidx >= uint64(a.tt_pgs) {
		return 0, 0, fmt.Errorf("nand: pgidx %d out of range [0,%d)", pgidx, a.tt_pgs)
	}
	off := int(pgidx) * a.pgsz
	return off, off + a.pgsz, nil
}

// ReadPage copies the page at pgidx into buf.
func (a *ArenaBackend) ReadPage(pgidx uint64, buf []byte) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	lo, hi, err := a.bounds(pgidx)
	if err != nil {
		return err
	}
	copy(buf, a.arena[lo:hi])
	return nil
}

// WritePage copies buf into the page at pgidx.
func (a *ArenaBackend) WritePage(pgidx uint64, buf []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	lo, hi, err := a.bounds(pgidx)
	if err != nil {
		return err
	}
	copy(a.arena[lo:hi], buf)
	return nil
}

// Reset zeros the entire arena.
func (a *ArenaBackend) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.arena {
		a.arena[i] = 0
	}
}
