package event

import "testing"

func TestPendingQueueOrdersByExpireTime(t *testing.T) {
	q := newPendingQueue()
	q.insert(&Request{ExpireTime: 30})
	q.insert(&Request{ExpireTime: 10})
	q.insert(&Request{ExpireTime: 20})

	r, ok := q.peekExpired(10)
	if !ok || r.ExpireTime != 10 {
		t.Fatalf("expected the ExpireTime=10 request first, got ok=%v r=%+v", ok, r)
	}
	if _, ok := q.peekExpired(10); ok {
		t.Fatal("nothing else should be expired at time 10")
	}
	r, ok = q.peekExpired(20)
	if !ok || r.ExpireTime != 20 {
		t.Fatalf("expected the ExpireTime=20 request next, got ok=%v r=%+v", ok, r)
	}
}

func TestPendingQueueTiesBrokenByInsertionOrder(t *testing.T) {
	q := newPendingQueue()
	first := &Request{ExpireTime: 5}
	second := &Request{ExpireTime: 5}
	q.insert(first)
	q.insert(second)

	r, _ := q.peekExpired(5)
	if r != first {
		t.Fatal("equal ExpireTime should resolve in insertion order")
	}
	r, _ = q.peekExpired(5)
	if r != second {
		t.Fatal("second request should follow the first")
	}
}

func TestPendingQueueLen(t *testing.T) {
	q := newPendingQueue()
	if q.len() != 0 {
		t.Fatal("new queue should be empty")
	}
	q.insert(&Request{ExpireTime: 1})
	q.insert(&Request{ExpireTime: 2})
	if q.len() != 2 {
		t.Fatalf("len() = %d, want 2", q.len())
	}
	q.peekExpired(2)
	if q.len() != 1 {
		t.Fatalf("len() after one pop = %d, want 1", q.len())
	}
}
