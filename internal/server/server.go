// Package server serves the card template directory over loopback HTTP for
// the duration of one render run.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/ogcards/internal/handshake"
	"github.com/JakeFAU/ogcards/internal/logging"
	"github.com/JakeFAU/ogcards/internal/metrics"
)

// Config controls where and how the content server listens.
type Config struct {
	Host              string
	Port              int
	Root              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ListenFunc opens the server's listening socket.
type ListenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Option customizes a Server.
type Option func(*Server)

// WithListenFunc replaces the function used to bind the socket.
func WithListenFunc(fn ListenFunc) Option {
	return func(s *Server) {
		s.listen = fn
	}
}

// Server is a static file server over the template directory.
type Server struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	listen  ListenFunc
	router  chi.Router

	mu  sync.RWMutex
	url string
}

// New constructs a Server with middleware and routes.
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	var lc net.ListenConfig
	s := &Server{
		cfg:     cfg,
		logger:  logging.OrNop(logger),
		metrics: m,
		listen:  lc.Listen,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	if m != nil {
		r.Use(m.Middleware)
	}

	r.Get("/-/healthz", s.healthz)
	r.Handle("/-/metrics", m.Handler())
	r.Handle("/*", staticHandler(cfg.Root))

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// URL returns the base URL of the bound listener, or "" before Ready.
func (s *Server) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// Run binds the socket, fires ready once requests can be answered, and
// serves until done fires, even if ctx is canceled first. It then shuts down
// gracefully, letting in-flight requests finish, and reports a canceled ctx
// as an error. A bind failure fails ready so the waiter is released, and is
// returned.
func (s *Server) Run(ctx context.Context, ready, done *handshake.Signal) error {
	ln, err := s.listen(ctx, "tcp", s.cfg.Addr())
	if err != nil {
		bindErr := errors.Wrapf(err, "bind content server on %s", s.cfg.Addr())
		if failErr := ready.Fail(bindErr); failErr != nil {
			return errors.CombineErrors(bindErr, failErr)
		}
		return bindErr
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	s.setURL(ln.Addr())
	if err := ready.Send(); err != nil {
		_ = srv.Close()
		return err
	}
	s.logger.Info("content server ready", zap.String("url", s.URL()), zap.String("root", s.cfg.Root))

	// done is awaited even after ctx is canceled; its producer always fires it.
	doneErr := make(chan error, 1)
	go func() {
		doneErr <- done.Wait(context.WithoutCancel(ctx))
	}()

	var runErr error
	select {
	case err := <-serveErr:
		// The serve loop only returns on its own when the listener breaks.
		return errors.Wrap(err, "content server stopped unexpectedly")
	case err := <-doneErr:
		if err != nil {
			runErr = errors.Wrap(err, "wait for render completion")
			s.logger.Warn("shutting down without render completion", zap.Error(err))
		}
	}

	if err := s.shutdown(srv, serveErr); err != nil {
		runErr = errors.CombineErrors(runErr, err)
	}
	if runErr == nil && ctx.Err() != nil {
		runErr = errors.Wrap(ctx.Err(), "content server run interrupted")
	}
	return runErr
}

func (s *Server) shutdown(srv *http.Server, serveErr <-chan error) error {
	s.logger.Info("content server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "content server shutdown")
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "content server serve")
	}
	s.logger.Info("content server stopped")
	return nil
}

func (s *Server) setURL(addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = "http://" + addr.String() + "/"
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(s.logger, w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}
