package cache

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/pollux006/bytefs-go/internal/ftl"
	"github.com/pollux006/bytefs-go/internal/nand"
)

// Stats tracks cache hit/miss/eviction counters (observability only — the
// spec marks statistics counters as non-essential to correctness).
type Stats struct {
	Hits      atomic.Uint64
	Misses    atomic.Uint64
	Evictions atomic.Uint64
	Promotes  atomic.Uint64
}

// Buffer is the "tobssd buffer": an N*PGSZ byte arena plus a pluggable
// Engine (set-associative or LRU), backing the byte-addressable host
// interface (spec.md §4.4).
type Buffer struct {
	// mu serializes lookup/reserve/evict transactions on the engine's
	// index, matching spec.md §5: held across a full hit-or-miss
	// transaction, released before the possibly-latent NAND I/O inside
	// eviction/promotion.
	mu sync.Mutex

	engine Engine
	arena  []byte
	n      int
	f      *ftl.FTL

	Stats Stats
}

// NewBuffer wraps engine with an N*PGSZ arena in front of f.
func NewBuffer(engine Engine, f *ftl.FTL) *Buffer {
	n := Count(engine)
	return &Buffer{
		engine: engine,
		arena:  make([]byte, n*nand.PGSZ),
		n:      n,
		f:      f,
	}
}

func (b *Buffer) slotBytes(slot int) []byte {
	off := slot * nand.PGSZ
	return b.arena[off : off+nand.PGSZ]
}

// resolution is what resolve returns: it runs the hit/miss transaction
// under mu and reports the bound slot plus whatever needs writing
// back/promoting outside the lock.
type resolution struct {
	slot         int
	hit          bool
	hadEviction  bool
	evictedLPN   uint64
	evictedDirty bool
	evictedBuf   []byte // snapshot taken while mu is held
}

func (b *Buffer) resolve(lpn uint64) resolution {
	b.mu.Lock()
	defer b.mu.Unlock()

	if slot, ok := b.engine.Lookup(lpn); ok {
		b.engine.Touch(slot)
		b.Stats.Hits.Add(1)
		return resolution{slot: slot, hit: true}
	}

	b.Stats.Misses.Add(1)
	slot, evictedLPN, hadEviction, evictedDirty := b.engine.ReserveSlot(lpn)
	var evictedBuf []byte
	if hadEviction && evictedDirty {
		evictedBuf = append([]byte(nil), b.slotBytes(slot)...)
	}
	return resolution{
		slot:         slot,
		hadEviction:  hadEviction,
		evictedLPN:   evictedLPN,
		evictedDirty: evictedDirty,
		evictedBuf:   evictedBuf,
	}
}

// settle performs the NAND-facing work for a miss (writeback + promote)
// outside the index lock, and returns the charged latency for this page.
func (b *Buffer) settle(lpn uint64, res resolution, stime uint64) uint64 {
	var pageLat uint64

	if res.hadEviction && res.evictedDirty {
		b.Stats.Evictions.Add(1)
		lat, err := b.f.WriteLPN(res.evictedLPN, res.evictedBuf, stime)
		if err == nil {
			pageLat += lat
		}
	}

	slotBuf := b.slotBytes(res.slot)
	lat, promoted, err := b.f.ReadLPN(lpn, slotBuf, stime+pageLat)
	if promoted {
		b.Stats.Promotes.Add(1)
		pageLat += lat
		if err != nil {
			// Soft corruption signal (spec.md §4.3/§7): logged, not
			// fatal — the promoted data is still used as-is.
			log.Printf("cache: promote lpn=%d: %v", lpn, err)
		}
	} else {
		// No mapping yet: slot starts zero-filled, no latency cost
		// beyond DRAM (spec.md §4.4 step 4).
		for i := range slotBuf {
			slotBuf[i] = 0
		}
	}
	return pageLat
}

// pageWalk describes one (lpn, page-local offset, length) step of a
// multi-page byte request.
type pageWalk struct {
	lpn    uint64
	offset int
	length int
}

// walk splits [lpa, lpa+size) into aligned per-page steps — offset only
// applies to the first page (spec.md §4.4 "Size accounting").
func walk(lpn uint64, offset int, size int) []pageWalk {
	var steps []pageWalk
	for size > 0 {
		n := nand.PGSZ - offset
		if n > size {
			n = size
		}
		steps = append(steps, pageWalk{lpn: lpn, offset: offset, length: n})
		size -= n
		offset = 0
		lpn++
	}
	return steps
}

// WriteBuffer implements spec.md §4.4 write_buffer: copies data into the
// cache across one or more pages, promoting/evicting as needed, and
// returns the maximum per-page latency observed (not the sum).
func (b *Buffer) WriteBuffer(lpn uint64, offset int, size int, data []byte, stime uint64) uint64 {
	var maxLat uint64
	copied := 0
	for _, step := range walk(lpn, offset, size) {
		res := b.resolve(step.lpn)
		var lat uint64
		if !res.hit {
			lat = b.settle(step.lpn, res, stime)
		}
		slotBuf := b.slotBytes(res.slot)
		copy(slotBuf[step.offset:step.offset+step.length], data[copied:copied+step.length])
		copied += step.length

		b.mu.Lock()
		b.engine.MarkDirty(res.slot)
		b.mu.Unlock()

		if lat > maxLat {
			maxLat = lat
		}
	}
	return maxLat
}

// ReadBuffer implements spec.md §4.4 read_buffer.
func (b *Buffer) ReadBuffer(lpn uint64, offset int, size int, data []byte, stime uint64) uint64 {
	var maxLat uint64
	copied := 0
	for _, step := range walk(lpn, offset, size) {
		res := b.resolve(step.lpn)
		var lat uint64
		if !res.hit {
			lat = b.settle(step.lpn, res, stime)
		}
		slotBuf := b.slotBytes(res.slot)
		copy(data[copied:copied+step.length], slotBuf[step.offset:step.offset+step.length])
		copied += step.length

		if lat > maxLat {
			maxLat = lat
		}
	}
	return maxLat
}
