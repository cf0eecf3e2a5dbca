// Package waitqueue implements a blocking producer/consumer queue. It
// backs kernel/tasking/scheme's command queue but is generic so any
// other producer/consumer hand-off in the kernel can reuse it.
package waitqueue

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// WaitQueue is a blocking FIFO queue. The zero value is not usable; build
// one with New.
type WaitQueue[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []T
}

// New creates an empty WaitQueue.
func New[T any]() *WaitQueue[T] {
	q := &WaitQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// PushBack appends item to the queue and wakes one blocked consumer, if
// any.
func (q *WaitQueue[T]) PushBack(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// PopFront blocks until at least one item is available, then removes and
// returns the oldest one.
func (q *WaitQueue[T]) PopFront() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// PopFrontMany blocks until the queue is non-empty, then drains up to
// len(buf) items into buf in FIFO order. It returns the number of items
// copied; a single wakeup may satisfy fewer than len(buf) items if the
// queue did not hold that many.
func (q *WaitQueue[T]) PopFrontMany(buf []T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}

	n := minInt(len(buf), len(q.items))
	copy(buf, q.items[:n])
	q.items = q.items[n:]
	return n
}

// Len returns the number of items currently queued, without blocking.
func (q *WaitQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func minInt[T constraints.Integer](a, b T) T {
	if a < b {
		return a
	}
	return b
}
