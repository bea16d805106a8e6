package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when enqueueing after the shutdown sentinel.
var ErrClosed = errors.New("notify: queue closed")

// Queue is an unbounded FIFO of speech requests terminated by a sentinel.
// Enqueue never blocks. Once Close has enqueued the sentinel, nothing else
// is accepted, so the sentinel is always the last item consumed.
type Queue struct {
	mu     sync.Mutex
	items  []string
	closed bool
	ready  chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Enqueue appends text.
func (q *Queue) Enqueue(text string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, text)
	q.mu.Unlock()
	q.wake()
	return nil
}

// Close enqueues the sentinel. Items already queued are still delivered.
// Calling Close again has no effect.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// Closed reports whether the sentinel has been enqueued.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of pending items, excluding the sentinel.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Next blocks until an item is available and returns it. ok is false once
// the sentinel is reached. A closed stop channel is treated as the
// sentinel. Next returns ctx.Err() if ctx is done first.
func (q *Queue) Next(ctx context.Context, stop <-chan struct{}) (text string, ok bool, err error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			text = q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
			return text, true, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return "", false, nil
		}

		select {
		case <-q.ready:
		case <-stop:
			q.Close()
			stop = nil
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
}
