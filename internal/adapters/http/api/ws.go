package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/pacechart/internal/app"
	"github.com/okian/pacechart/internal/domain/model"
	"github.com/okian/pacechart/pkg/logger"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadLimit    = 4 << 10
)

// SessionDependencies opens interactive chart sessions.
type SessionDependencies interface {
	OpenSession(ctx context.Context, width float64, sink service.Sink) (*service.Session, error)
}

// SessionHandler upgrades /ws requests and pumps client events into a
// session. Client frames are JSON session events:
//
//	{"kind":"pointer_move","x":120,"y":40}
//	{"kind":"resize","width":480}
type SessionHandler struct {
	deps     SessionDependencies
	upgrader websocket.Upgrader
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleSession handles GET /ws?width=W.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.ws"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	width, err := widthParam(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		return
	}
	defer conn.Close()

	log := logger.Named("ws")
	ctx := r.Context()
	sink := &wsSink{conn: conn}

	sess, err := h.deps.OpenSession(ctx, width, sink)
	if err != nil {
		_, code := classify(err)
		_ = sink.Send(ctx, service.Message{Type: service.MessageError, Code: code, Error: err.Error()})
		log.Warn(ctx, "session refused", logger.Error(err))
		return
	}
	defer sess.Close()

	conn.SetReadLimit(wsReadLimit)
	for {
		var e model.SessionEvent
		if err := conn.ReadJSON(&e); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn(ctx, "websocket read failed", logger.String("session", sess.ID), logger.Error(err))
			}
			return
		}
		if err := sess.Submit(ctx, e); err != nil {
			if errors.Is(err, service.ErrSessionClosed) {
				return
			}
			if err := sess.Report(ctx, err); err != nil {
				return
			}
		}
	}
}

// wsSink serializes writes; a websocket connection allows one writer.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(_ context.Context, m service.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(m)
}
