package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultQueueCapacity is the number of search results buffered between the
// ingestor and the workers.
const DefaultQueueCapacity = 1000

// ErrQueueClosed is returned by Put after Close, and by Take once the queue
// is closed and drained.
var ErrQueueClosed = errors.New("queue closed")

// QueueWriter is the producer side of a Queue.
type QueueWriter[T any] interface {
	Put(ctx context.Context, item T) error
	Close()
}

// QueueReader is the consumer side of a Queue.
type QueueReader[T any] interface {
	Take(ctx context.Context) (T, error)
}

// Queue is a bounded FIFO for one producer and many consumers. Put blocks
// while the queue is full. Items buffered before Close are still handed out
// after it; Take reports ErrQueueClosed only once the buffer is empty.
//
// Close must not race with Put from the producer that owns the queue.
type Queue[T any] struct {
	items  chan T
	closed chan struct{}
	once   sync.Once

	enqueued  atomic.Int64
	dequeued  atomic.Int64
	highWater atomic.Int64
}

// NewQueue creates a queue holding at most capacity items. A capacity below
// one uses DefaultQueueCapacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &Queue[T]{
		items:  make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// Put appends item, waiting for room. It fails with ErrQueueClosed after
// Close and with the context error if ctx ends first.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.items <- item:
		q.enqueued.Add(1)
		q.observe(int64(len(q.items)))
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Take removes the oldest item, waiting until one is available, the queue is
// closed and drained (ErrQueueClosed), or ctx ends.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	var zero T
	select {
	case item := <-q.items:
		q.dequeued.Add(1)
		return item, nil
	case <-q.closed:
		select {
		case item := <-q.items:
			q.dequeued.Add(1)
			return item, nil
		default:
			return zero, ErrQueueClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close marks the end of the stream. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.once.Do(func() { close(q.closed) })
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	select {
	case <-q.closed:
		return true
	default:
		return false
	}
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.items) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.items) }

// Enqueued returns the number of successful Puts.
func (q *Queue[T]) Enqueued() int64 { return q.enqueued.Load() }

// Dequeued returns the number of successful Takes.
func (q *Queue[T]) Dequeued() int64 { return q.dequeued.Load() }

// HighWater returns the largest number of items ever buffered at once.
func (q *Queue[T]) HighWater() int64 { return q.highWater.Load() }

func (q *Queue[T]) observe(n int64) {
	for {
		cur := q.highWater.Load()
		if n <= cur || q.highWater.CompareAndSwap(cur, n) {
			return
		}
	}
}
