package event

import "container/heap"

// expiryHeap orders pending Requests by ExpireTime, breaking ties by
// insertion order — the Go equivalent of the original's fixed-capacity
// bytefs_heap keyed on expire_time.
type expiryHeap []*Request

func (h expiryHeap) Len() int { return len(h) }

func (h expiryHeap) Less(i, j int) bool {
	if h[i].ExpireTime != h[j].ExpireTime {
		return h[i].ExpireTime < h[j].ExpireTime
	}
	return h[i].seq < h[j].seq
}

func (h expiryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) { *h = append(*h, x.(*Request)) }

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// pendingQueue wraps expiryHeap with the container/heap interface and a
// monotonically increasing insertion sequence for tie-breaking.
type pendingQueue struct {
	h    expiryHeap
	next uint64
}

func newPendingQueue() *pendingQueue {
	q := &pendingQueue{}
	heap.Init(&q.h)
	return q
}

func (q *pendingQueue) insert(r *Request) {
	r.seq = q.next
	q.next++
	heap.Push(&q.h, r)
}

func (q *pendingQueue) peekExpired(now uint64) (*Request, bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	if q.h[0].ExpireTime > now {
		return nil, false
	}
	return heap.Pop(&q.h).(*Request), true
}

func (q *pendingQueue) len() int { return len(q.h) }
