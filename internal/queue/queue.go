// Package queue implements the unbounded multi-producer/single-consumer
// queue used for every per-connection task's inbox and the UI's event
// feed (spec §5: "every per-connection task owns an unbounded MPSC
// queue... unboundedness is a deliberate design choice").
//
// A plain buffered channel cannot express "unbounded" without picking an
// arbitrary capacity, and an arbitrary capacity is exactly the kind of
// blocking-sender hazard spec §4.3/§5 forbids (a sender must never be
// able to block while holding the shared-state lock). Unbounded instead
// backs the queue with a growable slice guarded by a mutex, and uses a
// 1-buffered "doorbell" channel so a consumer can select on an event
// source that is cancellation-safe: "more items available" either is or
// isn't signaled, and the consumer drains everything available with
// TryPop each time it wakes (spec §9: "race N event sources... explicit try-receive with a
// short wake timer").
package queue

import "sync"

// Unbounded is a growable FIFO queue safe for concurrent Push from many
// goroutines. Only the owning goroutine is expected to call TryPop/Wait,
// but nothing enforces that — like the teacher's ConnPool, correctness
// rests on the documented calling convention, not the type system.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// NewUnbounded returns an empty queue.
func NewUnbounded[T any]() *Unbounded[T] {
	return &Unbounded[T]{notify: make(chan struct{}, 1)}
}

// Push enqueues v and wakes the consumer. Never blocks.
func (q *Unbounded[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest item, or (zero, false) if empty.
func (q *Unbounded[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero // drop the reference so it can be GC'd
	q.items = q.items[1:]
	return v, true
}

// Wait returns the doorbell channel: a receive from it fires at least
// once after each Push that found the queue empty. The consumer should
// always drain with TryPop in a loop after waking, since multiple
// pushes may be coalesced into a single doorbell ring.
func (q *Unbounded[T]) Wait() <-chan struct{} {
	return q.notify
}

// Len reports the current queue length. Mainly useful for tests and
// metrics — racy against concurrent Push by design.
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
