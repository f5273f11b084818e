package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/services"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/tasks"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own a set of routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// StatusProvider reports scheduler state. [tasks.Scheduler] implements it.
type StatusProvider interface {
	Status() tasks.SchedulerStatus
	StatusInfo() []string
}

// Options configures a [Server]. Metrics and Logger are optional.
type Options struct {
	Addr      string
	Engine    tasks.SyncEngine
	Scheduler StatusProvider
	Prober    services.Prober
	Metrics   *Metrics
	Logger    *log.Logger
}

// Server serves the daemon's HTTP API.
type Server struct {
	addr   string
	router *BasicRouter
	logger *log.Logger
}

// New wires the API routes, metrics endpoint and middleware onto a [BasicRouter].
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	router := NewBasicRouter()
	router.Use(Recoverer(logger), RequestLogger(logger))
	router.Handler(NewAPIHandler(opts.Engine, opts.Scheduler, opts.Prober, logger))
	if opts.Metrics != nil {
		router.Handle(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	logger.Debug("routes registered", "routes", router.Routes())

	return &Server{addr: opts.Addr, router: router, logger: logger}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
