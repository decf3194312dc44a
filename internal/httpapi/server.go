package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"petit-panthere/pkg/panthere"

	"github.com/rs/cors"
)

const (
	// ServiceName is reported by the liveness probe.
	ServiceName = "petit-panthere"
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":5001"

	maxRequestBodyBytes = 1 << 20
	shutdownTimeout     = 5 * time.Second
)

// ChatRelay is the stateful relay the HTTP surface fronts.
type ChatRelay interface {
	panthere.Relay
	// Clear drops one session's history.
	Clear(ctx context.Context, sessionID string) error
	// Usage returns the current ledger and ceiling.
	Usage() panthere.BudgetStatus
}

// Option mutates Server configuration.
type Option func(*Server)

// WithAddr sets the listen address used by Run.
func WithAddr(addr string) Option {
	return func(server *Server) {
		if strings.TrimSpace(addr) != "" {
			server.addr = addr
		}
	}
}

// WithStaticDir sets the directory holding chat.html and icon.png.
func WithStaticDir(dir string) Option {
	return func(server *Server) {
		if strings.TrimSpace(dir) != "" {
			server.staticDir = dir
		}
	}
}

// WithLogger injects the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(server *Server) {
		if logger != nil {
			server.logger = logger
		}
	}
}

// Server exposes the chat relay over HTTP.
type Server struct {
	addr      string
	staticDir string
	relay     ChatRelay
	logger    *slog.Logger
	mux       *http.ServeMux
	handler   http.Handler
}

// New creates the HTTP surface. It does not start listening.
func New(relay ChatRelay, options ...Option) (*Server, error) {
	if relay == nil {
		return nil, fmt.Errorf("new http server: nil relay")
	}

	server := &Server{
		addr:      DefaultAddr,
		staticDir: ".",
		relay:     relay,
		logger:    slog.Default(),
		mux:       http.NewServeMux(),
	}
	for _, option := range options {
		option(server)
	}

	server.mux.HandleFunc("GET /health", server.handleHealth)
	server.mux.HandleFunc("GET /{$}", server.handleIndex)
	server.mux.HandleFunc("GET /icon.png", server.handleIcon)
	server.mux.HandleFunc("POST /chat", server.handleChat)
	server.mux.HandleFunc("POST /clear", server.handleClear)
	server.mux.HandleFunc("GET /usage", server.handleUsage)
	server.handler = cors.AllowAll().Handler(server.withRequestLog(server.mux))

	return server, nil
}

// ServeHTTP implements http.Handler so tests can drive the surface without a
// listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	var listenConfig net.ListenConfig
	listener, err := listenConfig.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http server listen %s: %w", s.addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", listener.Addr().String())
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server serve: %w", err)
	}
	s.logger.Info("http server stopped")

	return nil
}
