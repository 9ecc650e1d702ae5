package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"turntable/internal/cachestore"
	"turntable/internal/session"
	"turntable/internal/spotify"
	"turntable/internal/web"
)

// App orchestrates the lifecycle of the web server and the session manager
// behind it.
type App struct {
	cfg     *Config
	manager *session.Manager
	server  *web.Server
}

// New validates the configuration and assembles the application. Building
// the session manager primes it from the token store, so a saved session may
// already be restored (and refreshed if stale) by the time New returns.
func New(ctx context.Context, cfg *Config) (*App, error) {
	manager, cache, err := newManager(ctx, cfg)
	if err != nil {
		return nil, err
	}

	server, err := web.New(manager, cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create web server: %w", err)
	}

	return &App{
		cfg:     cfg,
		manager: manager,
		server:  server,
	}, nil
}

// NewManager builds just the session manager and its collaborators.
// Commands that do not serve HTTP (status, logout) use it directly.
func NewManager(ctx context.Context, cfg *Config) (*session.Manager, error) {
	manager, _, err := newManager(ctx, cfg)
	return manager, err
}

func newManager(ctx context.Context, cfg *Config) (*session.Manager, cachestore.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	authenticator, err := spotify.NewAuthenticator(cfg.Spotify.Credentials())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	tokens, err := cfg.Tokens.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token store: %w", err)
	}

	cache, err := cfg.Cache.NewStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cache store: %w", err)
	}

	manager, err := session.New(ctx, authenticator, tokens, cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	return manager, cache, nil
}

// Manager returns the session manager behind the web surface.
func (a *App) Manager() *session.Manager {
	return a.manager
}

// Authenticated returns a channel that is closed after the first callback
// completes successfully. The login command blocks on it.
func (a *App) Authenticated() <-chan struct{} {
	return a.server.Authenticated()
}

// Address returns the address the web surface serves on.
func (a *App) Address() string {
	return a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.Address()
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting web server", "address", address)
	serverErrCh, err := a.server.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("web server startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.server.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "web server runtime error", "error", err)
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
