package dispatch

import (
	"sync"
	"time"

	"github.com/example/court-scheduler/internal/booking"
)

// execQueue is the FIFO between due-promotion and execution. Enqueue never
// blocks; Get waits at most its timeout. Remove is the best-effort
// drain-and-requeue cancel: it cannot see an item the loop has already
// dequeued, so a cancel racing the dequeue may miss (accepted behavior).
type execQueue struct {
	mu    sync.Mutex
	items []booking.Reservation
	wake  chan struct{}
}

func newExecQueue() *execQueue {
	return &execQueue{wake: make(chan struct{}, 1)}
}

func (q *execQueue) Put(r booking.Reservation) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get pops the head, waiting up to timeout for one to arrive.
func (q *execQueue) Get(timeout time.Duration) (booking.Reservation, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			r := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return r, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-deadline.C:
			return booking.Reservation{}, false
		}
	}
}

// Remove drops id from the queued items, preserving the relative order of
// the survivors. Reports whether anything was dropped.
func (q *execQueue) Remove(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := false
	remain := q.items[:0]
	for _, r := range q.items {
		if r.ID == id {
			removed = true
			continue
		}
		remain = append(remain, r)
	}
	q.items = remain
	return removed
}

func (q *execQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
