// Package eventqueue implements the per-task bounded FIFO with tap-based
// fan-out: one executor (producer) publishes events that are delivered in
// order to a primary consumer plus zero or more tapped consumers
// (resubscribers, push-notification senders, persistence sinks).
package eventqueue

import (
	"errors"
	"sync"

	"github.com/a2arelay/a2arelay/a2a"
	"github.com/a2arelay/a2arelay/logger"
)

// DefaultCapacity is the default bound on buffered, undelivered events.
const DefaultCapacity = 1024

// ErrEmpty is returned by Dequeue(block=false) when the queue has no event
// ready and is not closed.
var ErrEmpty = errors.New("eventqueue: empty")

// ErrClosed is returned by Dequeue when the queue is closed and drained.
var ErrClosed = errors.New("eventqueue: closed")

// Queue is a single-parent FIFO with tap-based fan-out. The zero value is
// not usable; construct with New.
type Queue struct {
	mu       sync.Mutex
	buf      []a2a.Event
	capacity int
	closed   bool
	notEmpty chan struct{} // closed and replaced whenever buf/closed changes

	taps map[*Queue]struct{}
	parent *Queue
}

// New returns a Queue with the given capacity. Capacity <= 0 uses
// DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		notEmpty: make(chan struct{}),
	}
}

// Enqueue publishes an event. It is a no-op, never an error, once the queue
// is closed. It blocks only when the buffer is at capacity, providing
// back-pressure to the producer.
func (q *Queue) Enqueue(e a2a.Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	for len(q.buf) >= q.capacity && !q.closed {
		notEmpty := q.notEmpty
		q.mu.Unlock()
		<-notEmpty
		q.mu.Lock()
	}
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, e)
	q.wake()
	taps := make([]*Queue, 0, len(q.taps))
	for t := range q.taps {
		taps = append(taps, t)
	}
	q.mu.Unlock()

	for _, t := range taps {
		t.Enqueue(e)
	}
}

// Dequeue returns the next event. If block is false and the queue is
// currently empty (but open), it returns ErrEmpty immediately. If the queue
// is closed and empty, it returns ErrClosed. If block is true it waits for
// either an event or closure.
func (q *Queue) Dequeue(block bool) (a2a.Event, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			e := q.buf[0]
			q.buf = q.buf[1:]
			q.wake()
			q.mu.Unlock()
			return e, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrClosed
		}
		if !block {
			q.mu.Unlock()
			return nil, ErrEmpty
		}
		notEmpty := q.notEmpty
		q.mu.Unlock()
		<-notEmpty
	}
}

// Tap creates a child queue that receives every event enqueued into q from
// this moment forward. Events already dequeued by q are not replayed. If
// q is already closed, the tap is returned pre-closed and empty.
func (q *Queue) Tap() *Queue {
	child := New(q.capacity)
	child.parent = q

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		child.closed = true
		close(child.notEmpty)
		return child
	}
	if q.taps == nil {
		q.taps = make(map[*Queue]struct{})
	}
	q.taps[child] = struct{}{}
	return child
}

// Close marks the queue closed. If immediate is true, buffered events are
// discarded and all taps are closed immediately too. If immediate is
// false (graceful), consumers may still drain already-buffered events
// before observing ErrClosed, and taps are closed only once their own
// buffers have drained naturally via the parent no longer feeding them.
// Closure is idempotent and propagates transitively to taps.
func (q *Queue) Close(immediate bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if immediate {
		q.buf = nil
	}
	taps := make([]*Queue, 0, len(q.taps))
	for t := range q.taps {
		taps = append(taps, t)
	}
	q.wake()
	q.mu.Unlock()

	for _, t := range taps {
		t.Close(immediate)
	}
	logger.Debug("eventqueue closed", "immediate", immediate, "tapCount", len(taps))
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// wake must be called with q.mu held; it unblocks any goroutine waiting on
// the previous notEmpty channel.
func (q *Queue) wake() {
	close(q.notEmpty)
	q.notEmpty = make(chan struct{})
}
