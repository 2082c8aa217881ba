package scheduler

import (
	"context"
	"io/fs"
	"sync"
	"time"
)

// task is one pending directory (or start path) visit. info is nil for
// start paths and pre-stated for entries discovered during the walk.
type task struct {
	path string
	info fs.FileInfo
}

// queue is an unbounded FIFO safe for concurrent producers and consumers.
// Consumers wait with a timeout so that an idle worker can drain out and a
// cancelled run is noticed promptly.
type queue struct {
	mu     sync.Mutex
	items  []task
	signal chan struct{}
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(t task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.wake()
}

// pop removes the oldest task, waiting up to timeout for one to arrive.
// Returns false when the queue stayed empty or the context was cancelled.
func (q *queue) pop(ctx context.Context, timeout time.Duration) (task, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				// wake another waiter for the remaining work
				q.wake()
			}
			return t, true
		}
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-timer.C:
			return task{}, false
		case <-ctx.Done():
			return task{}, false
		}
	}
}

func (q *queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
