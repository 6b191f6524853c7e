package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pacechart/internal/adapters/mq/queue"
	"github.com/okian/pacechart/internal/adapters/mq/worker"
	"github.com/okian/pacechart/internal/domain/chart"
	"github.com/okian/pacechart/internal/domain/highlight"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/internal/domain/plot"
	"github.com/okian/pacechart/internal/render/scene"
	"github.com/okian/pacechart/internal/render/svg"
	"github.com/okian/pacechart/pkg/logger"
	"github.com/okian/pacechart/pkg/metrics"
)

// Message types sent to session clients.
const (
	MessageDraw      = "draw"
	MessageHighlight = "highlight"
	MessageAck       = "ack"
	MessageError     = "error"
)

// Error codes carried by error messages.
const (
	CodeConfiguration = "configuration"
	CodeBackpressure  = "backpressure"
	CodeInvalidEvent  = "invalid_event"
	CodeNotDrawn      = "not_drawn"
	CodeInternal      = "internal"
)

// Message is one server-to-client session message.
type Message struct {
	Type      string              `json:"type"`
	Seq       uint64              `json:"seq,omitempty"`
	PlotID    string              `json:"plot_id,omitempty"`
	Version   uint64              `json:"version,omitempty"`
	Width     float64             `json:"width,omitempty"`
	SVG       string              `json:"svg,omitempty"`
	Highlight *highlight.State    `json:"highlight,omitempty"`
	Commands  []highlight.Command `json:"commands,omitempty"`
	Excluded  []model.Exclusion   `json:"excluded,omitempty"`
	Code      string              `json:"code,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Sink delivers messages to the session's client. Send is only called from
// the session worker and from Submit callers reporting backpressure, so an
// implementation must tolerate two concurrent callers.
type Sink interface {
	Send(ctx context.Context, m Message) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, m Message) error

// Send calls f(ctx, m).
func (f SinkFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

// Session is one interactive client. Its events run one at a time on its
// worker; the rendered state is only touched from there.
type Session struct {
	ID string

	svc    *Service
	sink   Sink
	canvas *svg.Canvas
	state  chart.RenderedState

	queue  queue.Queue
	worker worker.Worker
	seq    atomic.Uint64

	opened    time.Time
	cancel    context.CancelFunc
	closeOnce sync.Once
	logger    logger.Logger
}

// OpenSession starts a session drawing at width and queues its first draw.
func (s *Service) OpenSession(ctx context.Context, width float64, sink Sink) (*Session, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	if err := checkWidth(width); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	sess := &Session{
		ID:     id,
		svc:    s,
		sink:   sink,
		canvas: svg.NewCanvas(width),
		opened: time.Now(),
		queue:  queue.NewInMemoryQueue(queue.WithCapacity(s.sessionQueueSize)),
		logger: s.logger.Named("session").With(logger.String("session", id)),
	}
	sess.worker = worker.NewInMemoryWorker(sess.queue, worker.HandlerFunc(sess.handle),
		worker.WithName("session-"+id[:8]),
		worker.WithLogger(sess.logger),
	)

	// The worker outlives the request that opened the session.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess.cancel = cancel

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	go sess.worker.Run(runCtx)
	metrics.SessionOpened()
	sess.logger.Info(ctx, "session opened", logger.Float64("width", width))

	if err := sess.Submit(ctx, model.SessionEvent{Kind: model.EventResize, Width: width}); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// Submit validates e, stamps it and queues it. A full queue drops the event
// and returns ErrBackpressure.
func (sess *Session) Submit(ctx context.Context, e model.SessionEvent) error {
	if sess.queue.IsClosed() {
		return ErrSessionClosed
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.Kind == model.EventResize {
		if err := checkWidth(e.Width); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	}
	if e.Seq == 0 {
		e.Seq = sess.seq.Add(1)
	}
	e.TS = time.Now()

	err := sess.queue.Enqueue(ctx, e)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrFull):
		sess.logger.Warn(ctx, "event dropped", logger.String("kind", string(e.Kind)), logger.Uint64("seq", e.Seq))
		return fmt.Errorf("%w: seq %d dropped", ErrBackpressure, e.Seq)
	case errors.Is(err, queue.ErrClosed):
		return ErrSessionClosed
	default:
		return err
	}
}

// Close stops accepting events, lets queued ones finish and unregisters the
// session. A session that does not drain within the drain timeout has its
// worker stopped and its in-flight event cancelled. It is safe to call more
// than once.
func (sess *Session) Close() {
	sess.closeOnce.Do(func() {
		ctx := context.Background()
		timeout := sess.svc.sessionDrainTimeout

		_ = sess.queue.Close()
		drained := true
		select {
		case <-sess.worker.Done():
		case <-time.After(timeout):
			drained = false
			sctx, cancel := context.WithTimeout(ctx, timeout)
			if err := sess.worker.Shutdown(sctx); err != nil {
				sess.logger.Warn(ctx, "session worker did not stop, cancelling", logger.Error(err))
			}
			cancel()
		}
		sess.cancel()

		sess.svc.mu.Lock()
		delete(sess.svc.sessions, sess.ID)
		sess.svc.mu.Unlock()

		metrics.SessionClosed()
		sess.logger.Info(ctx, "session closed",
			logger.Int("draws", sess.canvas.Draws()),
			logger.Bool("drained", drained),
			logger.Duration("lifetime", time.Since(sess.opened)),
		)
	})
}

// Done is closed once the session worker has stopped.
func (sess *Session) Done() <-chan struct{} {
	return sess.worker.Done()
}

// handle runs on the session worker.
func (sess *Session) handle(ctx context.Context, e model.SessionEvent) error {
	metrics.RecordPointerEvent(string(e.Kind))
	switch e.Kind {
	case model.EventResize:
		return sess.redraw(ctx, e)
	case model.EventPointerMove, model.EventPointerDrag:
		return sess.pointer(ctx, e)
	case model.EventPointerLeave:
		// The highlight is sticky; leaving only gets acknowledged.
		return sess.sink.Send(ctx, Message{Type: MessageAck, Seq: e.Seq})
	default:
		return sess.sendError(ctx, e.Seq, CodeInvalidEvent, fmt.Errorf("%w: kind %q", ErrInvalidEvent, e.Kind))
	}
}

func (sess *Session) redraw(ctx context.Context, e model.SessionEvent) error {
	sess.canvas.Resize(e.Width)
	snap := sess.svc.store.Snapshot()

	rs, err := sess.svc.render(ctx, snap.Series, sess.canvas)
	if err != nil {
		code := CodeInternal
		if errors.Is(err, plot.ErrConfiguration) {
			code = CodeConfiguration
		}
		return sess.sendError(ctx, e.Seq, code, err)
	}
	sess.state = rs

	buf, err := sess.canvas.Bytes()
	if err != nil {
		return err
	}

	state := rs.Highlight
	return sess.sink.Send(ctx, Message{
		Type:      MessageDraw,
		Seq:       e.Seq,
		PlotID:    rs.Plot.ID,
		Version:   snap.Version,
		Width:     e.Width,
		SVG:       string(buf),
		Highlight: &state,
		Commands:  rs.Commands,
		Excluded:  rs.Plot.Excluded,
	})
}

func (sess *Session) pointer(ctx context.Context, e model.SessionEvent) error {
	if sess.state.Plot == nil {
		return sess.sendError(ctx, e.Seq, CodeNotDrawn, errors.New("pointer event before the first draw"))
	}

	kind := highlight.PointerMove
	if e.Kind == model.EventPointerDrag {
		kind = highlight.PointerDrag
	}
	prev := sess.state.Highlight

	var cmds []highlight.Command
	began := time.Now()
	if err := sess.canvas.Update(func(*scene.Node) {
		sess.state, cmds = sess.state.Pointer(highlight.Pointer{Kind: kind, X: e.X, Y: e.Y})
	}); err != nil {
		return err
	}
	metrics.RecordNearestQuery(float64(time.Since(began).Microseconds()) / 1000)

	if !highlight.Changed(prev, sess.state.Highlight) {
		return nil
	}
	metrics.RecordHighlightChange()
	state := sess.state.Highlight
	return sess.sink.Send(ctx, Message{
		Type:      MessageHighlight,
		Seq:       e.Seq,
		PlotID:    state.PlotID,
		Highlight: &state,
		Commands:  cmds,
	})
}

func (sess *Session) sendError(ctx context.Context, seq uint64, code string, err error) error {
	if sendErr := sess.sink.Send(ctx, Message{Type: MessageError, Seq: seq, Code: code, Error: err.Error()}); sendErr != nil {
		return sendErr
	}
	return err
}

// Report sends an error message for an event that never reached the queue.
func (sess *Session) Report(ctx context.Context, err error) error {
	code := CodeInternal
	switch {
	case errors.Is(err, ErrBackpressure):
		code = CodeBackpressure
	case errors.Is(err, ErrInvalidEvent):
		code = CodeInvalidEvent
	}
	return sess.sink.Send(ctx, Message{Type: MessageError, Code: code, Error: err.Error()})
}
