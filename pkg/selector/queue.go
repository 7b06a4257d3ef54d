package selector

import (
	"container/heap"
	"sync"
	"time"
)

// Queue is a bounded priority queue sequencing requests that arrive
// while concurrency is saturated. Entries dequeue in priority order,
// tie-broken by arrival time; entries whose deadline has passed are
// dropped rather than served.
type Queue struct {
	mu       sync.Mutex
	capacity int
	entries  requestHeap
	seq      uint64
	dropped  int64
}

// NewQueue creates a Queue holding at most capacity entries.
func NewQueue(capacity int) *Queue {
	return &Queue{capacity: capacity}
}

// Enqueue adds a pending request. EnqueuedAt is stamped here. Expired
// entries are evicted first so a full queue of dead requests does not
// reject live ones.
func (q *Queue) Enqueue(req PendingRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	if len(q.entries) >= q.capacity {
		q.dropExpiredLocked(now)
	}
	if len(q.entries) >= q.capacity {
		return ErrQueueFull
	}

	req.EnqueuedAt = now
	q.seq++
	heap.Push(&q.entries, &queuedRequest{request: req, seq: q.seq})
	return nil
}

// Dequeue removes and returns the highest-priority live request.
func (q *Queue) Dequeue() (*PendingRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for q.entries.Len() > 0 {
		entry := heap.Pop(&q.entries).(*queuedRequest)
		if entry.request.expired(now) {
			q.dropped++
			continue
		}
		req := entry.request
		return &req, nil
	}
	return nil, ErrQueueEmpty
}

// Len returns the number of queued entries, expired ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}

// DroppedTotal returns the cumulative count of expired entries dropped.
func (q *Queue) DroppedTotal() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// DropExpired removes expired entries and returns how many were
// dropped. Dequeue already skips them; this exists for the periodic
// sweep so counters and queue length stay honest between dequeues.
func (q *Queue) DropExpired() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropExpiredLocked(time.Now())
}

func (q *Queue) dropExpiredLocked(now time.Time) int {
	n := 0
	live := q.entries[:0]
	for _, entry := range q.entries {
		if entry.request.expired(now) {
			n++
			continue
		}
		live = append(live, entry)
	}
	if n > 0 {
		q.entries = live
		heap.Init(&q.entries)
		q.dropped += int64(n)
	}
	return n
}

type queuedRequest struct {
	request PendingRequest
	seq     uint64
	index   int
}

// requestHeap orders by priority, then arrival sequence.
type requestHeap []*queuedRequest

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].request.Priority != h[j].request.Priority {
		return h[i].request.Priority < h[j].request.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *requestHeap) Push(x any) {
	entry := x.(*queuedRequest)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
