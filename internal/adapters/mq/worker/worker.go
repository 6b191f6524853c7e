// Package worker drains a session queue on a single goroutine, so each event
// completes before the next one starts.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pacechart/internal/adapters/mq/queue"
	"github.com/okian/pacechart/pkg/logger"
	"github.com/okian/pacechart/pkg/metrics"
)

// Event is what the worker reads off the queue.
type Event = queue.Event

// Handler processes one session event.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

// Handle calls f(ctx, e).
func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events with the provided handler.
type Worker interface {
	// Run processes events until the queue is drained and closed, ctx is
	// canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining and waits for the event
	// in progress.
	Shutdown(ctx context.Context) error

	// Done is closed when Run returns.
	Done() <-chan struct{}
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	handler Handler
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, handler Handler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		handler:  handler,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		// A stop request wins over events that are still queued.
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event",
					logger.String("kind", string(event.Kind)),
					logger.Uint64("seq", event.Seq),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker after the event in progress. Queued events are
// left unprocessed.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, event Event) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "handler_error")
		}
	}()
	return w.handler.Handle(ctx, event)
}
