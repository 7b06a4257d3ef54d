package selector

import (
	"errors"
	"testing"
	"time"
)

func TestQueue_DequeueByPriority(t *testing.T) {
	q := NewQueue(10)

	q.Enqueue(PendingRequest{ID: "bulk", Priority: PriorityBulk})
	q.Enqueue(PendingRequest{ID: "critical", Priority: PriorityCritical})
	q.Enqueue(PendingRequest{ID: "normal", Priority: PriorityNormal})

	want := []string{"critical", "normal", "bulk"}
	for _, id := range want {
		req, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Expected %s, got error %v", id, err)
		}
		if req.ID != id {
			t.Errorf("Expected %s, got %s", id, req.ID)
		}
	}
}

func TestQueue_EqualPriorityDequeuesInArrivalOrder(t *testing.T) {
	q := NewQueue(10)

	for _, id := range []string{"first", "second", "third"} {
		if err := q.Enqueue(PendingRequest{ID: id, Priority: PriorityNormal}); err != nil {
			t.Fatalf("Expected enqueue of %s, got %v", id, err)
		}
	}

	for _, id := range []string{"first", "second", "third"} {
		req, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Expected %s, got error %v", id, err)
		}
		if req.ID != id {
			t.Errorf("Expected %s, got %s", id, req.ID)
		}
	}
}

func TestQueue_FullRejects(t *testing.T) {
	q := NewQueue(2)

	q.Enqueue(PendingRequest{ID: "a"})
	q.Enqueue(PendingRequest{ID: "b"})

	err := q.Enqueue(PendingRequest{ID: "c"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestQueue_FullEvictsExpiredFirst(t *testing.T) {
	q := NewQueue(2)

	q.Enqueue(PendingRequest{ID: "dead", Deadline: time.Now().Add(10 * time.Millisecond)})
	q.Enqueue(PendingRequest{ID: "live"})

	time.Sleep(20 * time.Millisecond)

	if err := q.Enqueue(PendingRequest{ID: "new"}); err != nil {
		t.Fatalf("Expected expired entry evicted, got %v", err)
	}
	if q.Len() != 2 {
		t.Errorf("Expected 2 entries, got %d", q.Len())
	}
	if q.DroppedTotal() != 1 {
		t.Errorf("Expected 1 dropped, got %d", q.DroppedTotal())
	}
}

func TestQueue_DequeueSkipsExpired(t *testing.T) {
	q := NewQueue(10)

	q.Enqueue(PendingRequest{ID: "dead", Priority: PriorityCritical, Deadline: time.Now().Add(10 * time.Millisecond)})
	q.Enqueue(PendingRequest{ID: "live", Priority: PriorityNormal})

	time.Sleep(20 * time.Millisecond)

	req, err := q.Dequeue()
	if err != nil {
		t.Fatalf("Expected live entry, got %v", err)
	}
	if req.ID != "live" {
		t.Errorf("Expected live, got %s", req.ID)
	}
	if q.DroppedTotal() != 1 {
		t.Errorf("Expected 1 dropped, got %d", q.DroppedTotal())
	}
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := NewQueue(10)

	_, err := q.Dequeue()
	if !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("Expected ErrQueueEmpty, got %v", err)
	}
}

func TestQueue_DropExpired(t *testing.T) {
	q := NewQueue(10)

	q.Enqueue(PendingRequest{ID: "a", Deadline: time.Now().Add(10 * time.Millisecond)})
	q.Enqueue(PendingRequest{ID: "b", Deadline: time.Now().Add(10 * time.Millisecond)})
	q.Enqueue(PendingRequest{ID: "c"})

	time.Sleep(20 * time.Millisecond)

	if n := q.DropExpired(); n != 2 {
		t.Errorf("Expected 2 dropped, got %d", n)
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", q.Len())
	}

	// Heap order survives the in-place rebuild.
	req, err := q.Dequeue()
	if err != nil || req.ID != "c" {
		t.Errorf("Expected c, got %v / %v", req, err)
	}
}

func TestQueue_EnqueueStampsArrival(t *testing.T) {
	q := NewQueue(10)

	before := time.Now()
	q.Enqueue(PendingRequest{ID: "a"})

	req, err := q.Dequeue()
	if err != nil {
		t.Fatalf("Expected entry, got %v", err)
	}
	if req.EnqueuedAt.Before(before) {
		t.Error("Expected EnqueuedAt stamped on enqueue")
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("HIGH")
	if err != nil || p != PriorityHigh {
		t.Errorf("Expected HIGH, got %v / %v", p, err)
	}
	if _, err := ParsePriority("URGENT"); err == nil {
		t.Error("Expected error for unknown priority")
	}
	if PriorityCritical.String() != "CRITICAL" {
		t.Errorf("Expected CRITICAL, got %s", PriorityCritical.String())
	}
}
