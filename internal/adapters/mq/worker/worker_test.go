package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/pacechart/internal/adapters/mq/queue"
	worker "github.com/okian/pacechart/internal/adapters/mq/worker"
	model "github.com/okian/pacechart/internal/domain/model"
	logging "github.com/okian/pacechart/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

// recorder collects handled events and can fail selected sequence numbers.
type recorder struct {
	mu      sync.Mutex
	seen    []uint64
	failSeq map[uint64]error
	active  int
	overlap bool
}

func (r *recorder) Handle(_ context.Context, e worker.Event) error {
	r.mu.Lock()
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	r.mu.Unlock()

	time.Sleep(100 * time.Microsecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.active--
	r.seen = append(r.seen, e.Seq)
	if e.Kind == "panic" {
		panic("boom")
	}
	return r.failSeq[e.Seq]
}

func (r *recorder) handled() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seen...)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker draining a session queue", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		rec := &recorder{failSeq: map[uint64]error{3: errors.New("draw failed")}}
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("session-test"), worker.WithLogger(logging.Get()))

		convey.Convey("When events are queued and the queue is closed", func() {
			for i := uint64(1); i <= 20; i++ {
				convey.So(q.Enqueue(ctx, model.SessionEvent{Kind: model.EventPointerMove, Seq: i}), convey.ShouldBeNil)
			}
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then every event should be handled once, in order, one at a time", func() {
				got := rec.handled()
				convey.So(got, convey.ShouldHaveLength, 20)
				for i, seq := range got {
					convey.So(seq, convey.ShouldEqual, uint64(i+1))
				}
				convey.So(rec.overlap, convey.ShouldBeFalse)
			})

			convey.Convey("Then Done should be closed", func() {
				select {
				case <-w.Done():
				default:
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When a handler panics", func() {
			_ = q.Enqueue(ctx, model.SessionEvent{Kind: "panic", Seq: 1})
			_ = q.Enqueue(ctx, model.SessionEvent{Kind: model.EventPointerMove, Seq: 2})
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then the worker should keep going", func() {
				convey.So(rec.handled(), convey.ShouldResemble, []uint64{1, 2})
			})
		})

		convey.Convey("When the worker is shut down while idle", func() {
			go w.Run(ctx)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			err := w.Shutdown(sctx)

			convey.Convey("Then it should stop gracefully", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the worker is shut down with events still queued", func() {
			release := make(chan struct{})
			started := make(chan struct{}, 8)
			var handled []uint64
			blocking := worker.HandlerFunc(func(_ context.Context, e worker.Event) error {
				started <- struct{}{}
				<-release
				handled = append(handled, e.Seq)
				return nil
			})
			bw := worker.NewInMemoryWorker(q, blocking)
			for i := uint64(1); i <= 5; i++ {
				_ = q.Enqueue(ctx, model.SessionEvent{Kind: model.EventPointerMove, Seq: i})
			}
			go bw.Run(ctx)
			<-started

			sctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := bw.Shutdown(sctx)
			close(release)

			convey.Convey("Then Shutdown should time out on the event in progress", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})

			convey.Convey("Then the worker should stop without taking the queued events", func() {
				select {
				case <-bw.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
				convey.So(handled, convey.ShouldResemble, []uint64{1})
				convey.So(q.Len(), convey.ShouldBeGreaterThanOrEqualTo, 3)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			go w.Run(cctx)
			cancel()

			convey.Convey("Then the worker should stop", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestHandlerFunc(t *testing.T) {
	var got worker.Event
	h := worker.HandlerFunc(func(_ context.Context, e worker.Event) error {
		got = e
		return nil
	})
	if err := h.Handle(context.Background(), model.SessionEvent{Kind: model.EventResize, Width: 640}); err != nil {
		t.Fatal(err)
	}
	if got.Width != 640 {
		t.Errorf("expected width 640, got %v", got.Width)
	}
}
