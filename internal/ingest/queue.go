package ingest

import (
	"sync"
	"time"
)

// Queue is the unbounded FIFO of candidate paths awaiting the drainer. A path
// re-queued with EnqueueAfter counts as contained until its delay elapses.
type Queue struct {
	mu      sync.Mutex
	items   []string
	delayed map[string]*time.Timer
	ready   chan struct{}
	closed  bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		delayed: make(map[string]*time.Timer),
		ready:   make(chan struct{}, 1),
	}
}

// Enqueue appends path and signals Ready. Enqueue on a closed queue is a no-op.
func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, path)
	q.mu.Unlock()
	q.signal()
}

// Offer enqueues path unless it is already queued or delayed. It reports
// whether the path was added.
func (q *Queue) Offer(path string) bool {
	q.mu.Lock()
	if q.closed || q.containsLocked(path) {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, path)
	q.mu.Unlock()
	q.signal()
	return true
}

// EnqueueAfter re-queues path once delay has elapsed without blocking the
// caller. A second call for a path that is already delayed is ignored.
func (q *Queue) EnqueueAfter(path string, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if _, ok := q.delayed[path]; ok {
		return
	}
	q.delayed[path] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		if _, ok := q.delayed[path]; !ok {
			q.mu.Unlock()
			return
		}
		delete(q.delayed, path)
		q.items = append(q.items, path)
		q.mu.Unlock()
		q.signal()
	})
}

// TryDequeue removes the oldest path.
func (q *Queue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	path := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return path, true
}

// Count returns the number of immediately available paths.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns queued plus delayed paths.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) + len(q.delayed)
}

// Contains reports whether path is queued or waiting on a delayed re-queue.
func (q *Queue) Contains(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.containsLocked(path)
}

func (q *Queue) containsLocked(path string) bool {
	if _, ok := q.delayed[path]; ok {
		return true
	}
	for _, item := range q.items {
		if item == path {
			return true
		}
	}
	return false
}

// Ready is signalled whenever a path becomes available.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Close stops delayed re-queues and rejects further additions. Paths already
// queued stay available to TryDequeue.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for path, timer := range q.delayed {
		timer.Stop()
		delete(q.delayed, path)
	}
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
