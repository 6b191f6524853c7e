// Package queue is the bounded event queue of a session. Enqueue never
// blocks: a full queue rejects the event so a slow session pushes back on
// its client instead of buffering without limit.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/pkg/metrics"
)

const defaultQueueCapacity = 256

// Event is the payload type flowing through the queue.
type Event = model.SessionEvent

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. It returns ErrFull or ErrClosed when the event
	// was not accepted, or the context error if ctx is already done.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns a channel delivering events in enqueue order. The
	// channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len() int

	// Capacity returns the maximum number of queued events.
	Capacity() int

	// Close stops accepting events. Already queued events stay deliverable.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	return q
}

// Enqueue adds an event to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.events:
				if !ok {
					return
				}
				select {
				case out <- event:
					metrics.RecordQueueDequeue()
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Capacity returns the configured bound.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
