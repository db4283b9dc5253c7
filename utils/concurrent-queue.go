package utils

import (
	"context"
	"sync"
)

// ConcurrentQueue is an unbounded FIFO whose Dequeue blocks until an item is
// available or the queue context is done.
type ConcurrentQueue[T any] struct {
	items []T
	lock  sync.Mutex
	cond  *sync.Cond
	ctx   context.Context
}

func NewConcurrentQueue[T any](ctx context.Context) *ConcurrentQueue[T] {
	q := &ConcurrentQueue[T]{ctx: ctx}
	q.cond = sync.NewCond(&q.lock)

	context.AfterFunc(ctx, func() {
		q.lock.Lock()
		defer q.lock.Unlock()
		q.cond.Broadcast()
	})

	return q
}

func (q *ConcurrentQueue[T]) Enqueue(item T) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items = append(q.items, item)
	q.cond.Signal()
}

// Dequeue returns false once the queue context is done.
func (q *ConcurrentQueue[T]) Dequeue() (T, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	for len(q.items) == 0 && q.ctx.Err() == nil {
		q.cond.Wait()
	}
	var item T
	if q.ctx.Err() != nil {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *ConcurrentQueue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}

func (q *ConcurrentQueue[T]) IsEmpty() bool {
	return q.Len() == 0
}
