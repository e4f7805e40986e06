package navserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/navstack/internal/errors"
	"github.com/vango-dev/navstack/pkg/router"
)

// Server exposes a Resolver over HTTP and WebSocket.
type Server struct {
	config   *Config
	resolver *router.Resolver
	tree     atomic.Pointer[router.Tree]
	upgrader websocket.Upgrader
	handler  http.Handler
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	httpServer *http.Server
}

// New creates a server resolving against tree. A nil config uses
// DefaultConfig.
func New(config *Config, resolver *router.Resolver, tree *router.Tree) *Server {
	config = config.withDefaults()
	if resolver == nil {
		resolver = router.NewResolver()
	}

	s := &Server{
		config:   config,
		resolver: resolver,
		logger:   config.Logger.With("component", "navserver"),
		sessions: make(map[string]*Session),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.tree.Store(tree)
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Tree returns the active route tree.
func (s *Server) Tree() *router.Tree {
	return s.tree.Load()
}

// SetTree swaps the route tree. Open sessions switch to it and refresh
// their current location.
func (s *Server) SetTree(tree *router.Tree) {
	s.tree.Store(tree)

	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	s.logger.Info("route tree replaced", "routes", tree.Len(), "sessions", len(sessions))
	for _, sess := range sessions {
		sess.treeChanged(tree)
	}
}

// SessionCount returns the number of open WebSocket sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/resolve", s.handleResolve)
	r.Get("/link/{name}", s.handleLink)
	r.Get("/routes", s.handleRoutes)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", s.HandleWebSocket)
	return r
}

// logRequests logs each HTTP request once it completed.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

// handleResolve resolves ?location= with the optional JSON ?state=.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	location := q.Get("location")
	if location == "" {
		s.writeError(w, http.StatusBadRequest,
			errors.New("E108").WithDetail("the location query parameter is required"))
		return
	}

	var state any
	if raw := q.Get("state"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			s.writeError(w, http.StatusBadRequest, errors.New("E141").Wrap(err))
			return
		}
	}

	res := s.resolver.Resolve(r.Context(), s.tree.Load(), location, state)
	s.writeJSON(w, faultStatus(res.Fault), NewResolutionView(res))
}

// LinkView is the /link response.
type LinkView struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// handleLink builds the location of a named route; every query parameter
// is a route parameter.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	params := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[len(v)-1]
		}
	}

	location, err := s.tree.Load().LocationFor(name, params)
	if err != nil {
		var f *router.Fault
		if stderrors.As(err, &f) {
			s.writeJSON(w, faultStatus(f), struct {
				Fault *FaultView `json:"fault"`
			}{NewFaultView(f)})
			return
		}
		s.writeError(w, http.StatusInternalServerError, errors.FromError(err, "E107"))
		return
	}
	s.writeJSON(w, http.StatusOK, LinkView{Name: name, Location: location})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewRouteViews(s.tree.Load()))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, e *errors.NavError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintln(w, e.FormatJSON())
}

// =============================================================================
// WebSocket
// =============================================================================

// HandleWebSocket upgrades the request and runs a navigation session on it.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	full := s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	if full {
		s.config.Metrics.RecordWebSocketError("limit")
		http.Error(w, "too many sessions", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Metrics.RecordWebSocketError("upgrade")
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s, conn)
	if !s.register(sess) {
		conn.Close()
		return
	}
	defer s.unregister(sess)

	sess.run(r.Context())
}

func (s *Server) register(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sessions[sess.ID] = sess
	s.config.Metrics.RecordSessionOpen()
	s.logger.Info("session opened", "session_id", sess.ID)
	return true
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	s.config.Metrics.RecordSessionClose()
	s.logger.Info("session closed", "session_id", sess.ID)
}

// =============================================================================
// Lifecycle
// =============================================================================

// Run serves on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("navserver: listen %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("server shutting down", "sessions", len(sessions))
	for _, sess := range sessions {
		sess.Close()
	}

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
