// Package web serves the HTTP surface that drives the OAuth session: a
// login redirect to the consent dialog, the provider callback that finishes
// the flow, and JSON endpoints for status, logout and cache clearing.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"

	"turntable/internal/cachestore"
	"turntable/internal/session"
)

// Session is the slice of the session manager the HTTP surface drives.
type Session interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) error
	IsAuthenticated(ctx context.Context) bool
	Client(ctx context.Context) (*spotify.Client, error)
	Status() session.Status
	Disconnect(ctx context.Context) error
	ClearCache(ctx context.Context) error
}

// Compile-time check that the manager satisfies the Session surface
var _ Session = (*session.Manager)(nil)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// Server drives the authorization flow over HTTP.
type Server struct {
	mux    *http.ServeMux
	server *http.Server

	session Session
	cache   cachestore.Store
	states  *stateStore
	logger  *slog.Logger

	authDone chan struct{}
	authOnce sync.Once
}

// Compile-time check that Server implements http.Handler
var _ http.Handler = (*Server)(nil)

// New creates a Server driving the given session.
func New(sess Session, cache cachestore.Store, opts ...Option) (*Server, error) {
	if sess == nil {
		return nil, fmt.Errorf("missing session")
	}
	if cache == nil {
		return nil, fmt.Errorf("missing cache store")
	}

	s := &Server{
		session:  sess,
		cache:    cache,
		states:   newStateStore(stateTTL),
		logger:   slog.Default(),
		authDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	logging := Logging(s.logger)
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, applyMiddlewares(h, logging, Recovery))
	}
	handle("GET /login", s.handleLogin)
	handle("GET /callback", s.handleCallback)
	handle("GET /status", s.handleStatus)
	handle("POST /logout", s.handleLogout)
	handle("POST /cache/clear", s.handleClearCache)
	s.mux = mux

	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Authenticated returns a channel that is closed after the first callback
// completes successfully. The login command blocks on it.
func (s *Server) Authenticated() <-chan struct{} {
	return s.authDone
}

func (s *Server) signalAuthenticated() {
	s.authOnce.Do(func() { close(s.authDone) })
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (s *Server) Start(ctx context.Context, address string) (<-chan error, error) {
	// Startup phase: Create listener synchronously to catch port-in-use errors immediately
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  30 * time.Second, // Read entire client request (DoS protection against slow clients)
		WriteTimeout: 30 * time.Second, // Responses are small pages and JSON, anything longer is stuck
		IdleTimeout:  90 * time.Second, // Keep-alive wait for next request from client
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := s.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (s *Server) Shutdown(ctx context.Context) error {
	s.states.Stop()

	if s.server == nil {
		return nil
	}

	if err := s.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = s.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
