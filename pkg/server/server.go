// Package server exposes layouts, static renders and interactive view
// sessions over HTTP.
//
// # Endpoints
//
//	GET    /healthz                     liveness and build version
//	GET    /metrics                     Prometheus metrics
//	POST   /v1/layout                   snapshot in, layout result out
//	POST   /v1/render/{mode}            snapshot in, SVG (or PNG/PDF) out
//	POST   /v1/sessions                 snapshot in, session id out
//	GET    /v1/sessions/{id}            current state and selection
//	DELETE /v1/sessions/{id}            end a session
//	POST   /v1/sessions/{id}/events     apply one input event
//	GET    /v1/sessions/{id}/frame      SVG of the active mode
//	GET    /v1/sessions/{id}/live       websocket: events in, frames out
//
// Errors are JSON objects {"code", "message"} with the status derived from
// the error code.
//
// Sessions are persisted in a [session.Store]. Recently used sessions also
// keep a live [viewer.Viewer] in memory so drags and the 3D camera survive
// between requests; evicted viewers are rebuilt from the stored state.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/codeflow/pkg/config"
	"github.com/matzehuels/codeflow/pkg/pipeline"
	"github.com/matzehuels/codeflow/pkg/session"
)

const (
	// DefaultLiveSessions bounds the number of in-memory viewers.
	DefaultLiveSessions = 128

	// MaxBodyBytes bounds snapshot and event request bodies.
	MaxBodyBytes = 16 << 20

	shutdownTimeout = 10 * time.Second
)

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the session store. The default keeps sessions in memory.
func WithStore(st session.Store) Option {
	return func(s *Server) {
		if st != nil {
			s.store = st
		}
	}
}

// WithRunner sets the layout and render pipeline.
func WithRunner(r *pipeline.Runner) Option {
	return func(s *Server) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithGatherer sets the registry served on /metrics. The default is the
// global Prometheus registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithLiveSessions bounds how many sessions keep a live viewer.
func WithLiveSessions(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.liveSize = n
		}
	}
}

// Server is the codeflow HTTP service.
type Server struct {
	cfg      config.ServerConfig
	runner   *pipeline.Runner
	store    session.Store
	hub      *hub
	logger   *log.Logger
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	liveSize int
	router   chi.Router
}

// New creates a server.
func New(cfg config.ServerConfig, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   log.New(io.Discard),
		gatherer: prometheus.DefaultGatherer,
		liveSize: DefaultLiveSessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = session.NewMemoryStore()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, nil, s.logger)
	}
	if s.cfg.SessionTTL.Duration <= 0 {
		s.cfg.SessionTTL.Duration = session.DefaultTTL
	}
	h, err := newHub(s.liveSize, s)
	if err != nil {
		return nil, err
	}
	s.hub = h
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.route("/healthz", s.handleHealth))
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.route("/v1/layout", s.handleLayout))
		r.Post("/render/{mode}", s.route("/v1/render/{mode}", s.handleRender))

		r.Post("/sessions", s.route("/v1/sessions", s.handleCreateSession))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.route("/v1/sessions/{id}", s.handleGetSession))
			r.Delete("/", s.route("/v1/sessions/{id}", s.handleDeleteSession))
			r.Post("/events", s.route("/v1/sessions/{id}/events", s.handleEvent))
			r.Get("/frame", s.route("/v1/sessions/{id}/frame", s.handleFrame))
			r.Get("/live", s.route("/v1/sessions/{id}/live", s.handleLive))
		})
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully and closes every live viewer.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if serveErr := <-errc; serveErr != nil && !stderrors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}

// Close stops every live viewer and closes the session store.
func (s *Server) Close() error {
	s.hub.closeAll()
	return s.store.Close()
}
