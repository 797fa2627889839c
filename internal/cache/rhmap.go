package cache

// robinHoodMap is the "buffer metadata table" of spec.md §4.4.1: an
// open-addressed hash table (linear probing) keyed by LPN, using Robin
// Hood displacement on insert and back-shift deletion, with every stored
// entry tracking its probe-sequence length (PSL).
type robinHoodMap struct {
	entries []rhEntry
	cap     int
	size    int
}

type rhEntry struct {
	used bool
	key  uint64
	val  int
	psl  int
}

// newRobinHoodMap sizes the table to at least 2x minEntries, per spec.md
// §4.4.1 "Capacity ≥ 2x buffer-entry count".
func newRobinHoodMap(minEntries int) *robinHoodMap {
	c := minEntries * 2
	if c < 8 {
		c = 8
	}
	return &robinHoodMap{entries: make([]rhEntry, c), cap: c}
}

func (m *robinHoodMap) hash(key uint64) int {
	// MurmurHash3 fmix64 finalizer — a cheap, well-distributed avalanche mix.
	h := key
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return int(h % uint64(m.cap))
}

// Put inserts or updates key -> val.
func (m *robinHoodMap) Put(key uint64, val int) {
	idx := m.hash(key)
	cur := rhEntry{used: true, key: key, val: val, psl: 0}
	for {
		slot := &m.entries[idx]
		if !slot.used {
			*slot = cur
			m.size++
			return
		}
		if slot.key == cur.key {
			slot.val = cur.val
			return
		}
		if slot.psl < cur.psl {
			slot.psl, cur.psl = cur.psl, slot.psl
			slot.key, cur.key = cur.key, slot.key
			slot.val, cur.val = cur.val, slot.val
		}
		cur.psl++
		idx = (idx + 1) % m.cap
	}
}

// Get returns the slot bound to key, if present.
func (m *robinHoodMap) Get(key uint64) (int, bool) {
	idx := m.hash(key)
	psl := 0
	for {
		slot := &m.entries[idx]
		if !slot.used || psl > slot.psl {
			return 0, false
		}
		if slot.key == key {
			return slot.val, true
		}
		idx = (idx + 1) % m.cap
		psl++
	}
}

// Delete removes key, back-shifting the following probe chain so later
// lookups don't need tombstones.
func (m *robinHoodMap) Delete(key uint64) {
	idx := m.hash(key)
	psl := 0
	for {
		slot := &m.entries[idx]
		if !slot.used {
			return
		}
		if slot.key == key {
			m.backShiftFrom(idx)
			m.size--
			return
		}
		if psl > slot.psl {
			return // not present
		}
		idx = (idx + 1) % m.cap
		psl++
	}
}

func (m *robinHoodMap) backShiftFrom(idx int) {
	cur := idx
	for {
		next := (cur + 1) % m.cap
		if !m.entries[next].used || m.entries[next].psl == 0 {
			m.entries[cur] = rhEntry{}
			return
		}
		m.entries[next].psl--
		m.entries[cur] = m.entries[next]
		cur = next
	}
}
