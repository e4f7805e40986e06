package navserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/navstack/pkg/router"
)

// Client operations.
const (
	OpNavigate = "navigate"
	OpBack     = "back"
	OpForward  = "forward"
	OpRefresh  = "refresh"
	OpPop      = "pop"
	OpState    = "state"
	OpLink     = "link"
	OpHistory  = "history"
)

// Server message types.
const (
	TypeHello      = "hello"
	TypeResolution = "resolution"
	TypeTree       = "tree"
	TypeHistory    = "history"
	TypeLink       = "link"
	TypeState      = "state"
	TypeError      = "error"
)

// Request is a client message.
type Request struct {
	// ID is echoed in the reply.
	ID string `json:"id,omitempty"`

	// Op is one of the Op constants.
	Op string `json:"op"`

	// Location is the navigate target.
	Location string `json:"location,omitempty"`

	// Replace replaces the current history entry on navigate.
	Replace bool `json:"replace,omitempty"`

	// Params are query parameters on navigate, route parameters on link.
	Params map[string]any `json:"params,omitempty"`

	// State is the host state, for the state op.
	State json.RawMessage `json:"state,omitempty"`

	// Name is the route name for link.
	Name string `json:"name,omitempty"`
}

// Response is a server message.
type Response struct {
	ID         string          `json:"id,omitempty"`
	Type       string          `json:"type"`
	Session    string          `json:"session,omitempty"`
	Resolution *ResolutionView `json:"resolution,omitempty"`
	History    *HistoryView    `json:"history,omitempty"`
	Location   string          `json:"location,omitempty"`
	Routes     int             `json:"routes,omitempty"`
	Error      *FaultView      `json:"error,omitempty"`
}

// Session is one WebSocket client with its own navigation history.
type Session struct {
	ID string

	server *Server
	conn   *websocket.Conn
	nav    *router.Navigator
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newSession(s *Server, conn *websocket.Conn) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:     id,
		server: s,
		conn:   conn,
		nav:    router.NewNavigator(s.resolver, s.tree.Load()),
		logger: s.logger.With("session_id", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

// run serves the session until the client leaves or the session is closed.
func (sess *Session) run(ctx context.Context) {
	defer sess.Close()

	stop := context.AfterFunc(ctx, sess.cancel)
	defer stop()

	cfg := sess.server.config
	deadline := 2 * cfg.PingInterval
	sess.conn.SetReadLimit(cfg.MaxMessageSize)
	sess.conn.SetReadDeadline(time.Now().Add(deadline))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	go sess.ping(cfg.PingInterval)

	if err := sess.send(Response{Type: TypeHello, Session: sess.ID, Routes: sess.nav.Tree().Len()}); err != nil {
		return
	}

	for {
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				sess.ctx.Err() == nil {
				sess.server.config.Metrics.RecordWebSocketError("read")
				sess.logger.Warn("read failed", "error", err)
			}
			return
		}
		sess.conn.SetReadDeadline(time.Now().Add(deadline))

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			sess.server.config.Metrics.RecordWebSocketError("protocol")
			sess.sendError("", protocolError("malformed message: %v", err))
			continue
		}
		if err := sess.send(sess.handle(req)); err != nil {
			return
		}
	}
}

func (sess *Session) ping(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			sess.writeMu.Lock()
			err := sess.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(sess.server.config.WriteTimeout))
			sess.writeMu.Unlock()
			if err != nil {
				sess.Close()
				return
			}
		}
	}
}

// handle executes one request and returns the reply.
func (sess *Session) handle(req Request) Response {
	ctx := sess.ctx
	reply := Response{ID: req.ID, Type: TypeResolution}

	switch req.Op {
	case OpNavigate:
		var opts []router.NavigateOption
		if req.Replace {
			opts = append(opts, router.WithReplace())
		}
		if len(req.Params) > 0 {
			opts = append(opts, router.WithParams(req.Params))
		}
		reply.Resolution = resolutionView(sess.nav.Navigate(ctx, req.Location, opts...))

	case OpBack, OpForward, OpRefresh:
		var res *router.Resolution
		var ok bool
		switch req.Op {
		case OpBack:
			res, ok = sess.nav.Back(ctx)
		case OpForward:
			res, ok = sess.nav.Forward(ctx)
		default:
			res, ok = sess.nav.Refresh(ctx)
		}
		if !ok {
			return errorReply(req.ID, protocolError("no history entry for %s", req.Op))
		}
		reply.Resolution = resolutionView(res)

	case OpPop:
		res, err := sess.nav.Pop()
		if err != nil {
			return errorReply(req.ID, protocolError("%v", err))
		}
		reply.Resolution = resolutionView(res)

	case OpState:
		var state any
		if len(req.State) > 0 {
			if err := json.Unmarshal(req.State, &state); err != nil {
				return errorReply(req.ID, protocolError("invalid state: %v", err))
			}
		}
		sess.nav.SetState(state)
		res, ok := sess.nav.Refresh(ctx)
		if !ok {
			reply.Type = TypeState
			return reply
		}
		reply.Resolution = resolutionView(res)

	case OpLink:
		params := make(map[string]string, len(req.Params))
		for k, v := range req.Params {
			params[k] = fmt.Sprint(v)
		}
		location, err := sess.nav.Tree().LocationFor(req.Name, params)
		if err != nil {
			var f *router.Fault
			if stderrors.As(err, &f) {
				return errorReply(req.ID, NewFaultView(f))
			}
			return errorReply(req.ID, protocolError("%v", err))
		}
		reply.Type = TypeLink
		reply.Location = location

	case OpHistory:
		reply.Type = TypeHistory

	default:
		sess.server.config.Metrics.RecordWebSocketError("protocol")
		return errorReply(req.ID, protocolError("unknown op %q", req.Op))
	}

	reply.History = newHistoryView(sess.nav)
	return reply
}

// treeChanged switches the session to tree and pushes the refreshed stack.
func (sess *Session) treeChanged(tree *router.Tree) {
	sess.nav.SetTree(tree)

	msg := Response{Type: TypeTree, Routes: tree.Len()}
	if res, ok := sess.nav.Refresh(sess.ctx); ok {
		msg.Resolution = resolutionView(res)
		msg.History = newHistoryView(sess.nav)
	}
	if err := sess.send(msg); err != nil {
		sess.logger.Debug("tree update not delivered", "error", err)
	}
}

func (sess *Session) send(msg Response) error {
	sess.writeMu.Lock()
	sess.conn.SetWriteDeadline(time.Now().Add(sess.server.config.WriteTimeout))
	err := sess.conn.WriteJSON(msg)
	sess.writeMu.Unlock()

	if err != nil {
		if sess.ctx.Err() == nil {
			sess.server.config.Metrics.RecordWebSocketError("write")
			sess.logger.Warn("write failed", "error", err)
		}
		sess.Close()
		return err
	}
	return nil
}

func (sess *Session) sendError(id string, f *FaultView) {
	sess.send(errorReply(id, f))
}

// Close ends the session. It is safe to call more than once.
func (sess *Session) Close() {
	sess.closeOnce.Do(func() {
		sess.cancel()
		sess.writeMu.Lock()
		sess.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		sess.writeMu.Unlock()
		sess.conn.Close()
	})
}

func resolutionView(res *router.Resolution) *ResolutionView {
	v := NewResolutionView(res)
	return &v
}

func errorReply(id string, f *FaultView) Response {
	return Response{ID: id, Type: TypeError, Error: f}
}

func protocolError(format string, args ...any) *FaultView {
	return &FaultView{
		Code:    "protocol",
		Kind:    "protocol",
		Message: fmt.Sprintf(format, args...),
	}
}
