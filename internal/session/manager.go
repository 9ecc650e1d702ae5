// Package session owns the OAuth session for one Spotify account: it
// finishes authorization flows, persists tokens, refreshes them before
// they go stale and tears the session down again.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"turntable/internal/cachestore"
	"turntable/internal/domain"
	"turntable/internal/tokenstore"
)

// Exchanger turns consent, authorization codes and refresh tokens into
// token records. Implemented by internal/spotify.Authenticator.
type Exchanger interface {
	// AuthCodeURL returns the consent URL for the given CSRF state.
	AuthCodeURL(state string) string

	// Exchange turns an authorization code into a token record.
	Exchange(ctx context.Context, code string) (*domain.Token, error)

	// Refresh exchanges a refresh token for a fresh record.
	Refresh(ctx context.Context, refreshToken string) (*domain.Token, error)
}

// Status is an immutable snapshot of the session state. Reading it never
// triggers a refresh.
type Status struct {
	Authenticated bool
	Token         *domain.Token
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNow overrides the clock used by staleness checks. Tests use it to
// move time without sleeping.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithClientOptions adds options applied to every Web API client built by
// Client, e.g. spotify.WithRetry or an alternate base URL.
func WithClientOptions(opts ...spotify.ClientOption) Option {
	return func(m *Manager) {
		m.clientOpts = append(m.clientOpts, opts...)
	}
}

// Manager sequences the session lifecycle between its three collaborators:
// the exchanger talking to the authorization server, the token store and
// the cache store.
//
// All methods are safe for concurrent use. Concurrent refreshes of the
// same stale record collapse into a single exchange.
type Manager struct {
	exchanger  Exchanger
	tokens     tokenstore.Store
	cache      cachestore.Store
	logger     *slog.Logger
	now        func() time.Time
	clientOpts []spotify.ClientOption

	mu      sync.Mutex
	current *domain.Token

	refreshGroup singleflight.Group
}

// New builds a Manager and primes it from the token store: a fresh stored
// record authenticates the session immediately, a stale one triggers one
// refresh attempt. A failed load or refresh starts the session
// unauthenticated without touching the stored record.
func New(ctx context.Context, exchanger Exchanger, tokens tokenstore.Store, cache cachestore.Store, opts ...Option) (*Manager, error) {
	if exchanger == nil {
		return nil, fmt.Errorf("missing exchanger")
	}
	if tokens == nil {
		return nil, fmt.Errorf("missing token store")
	}
	if cache == nil {
		return nil, fmt.Errorf("missing cache store")
	}

	m := &Manager{
		exchanger: exchanger,
		tokens:    tokens,
		cache:     cache,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.loadSaved(ctx)
	return m, nil
}

// loadSaved primes the in-memory state from the store. Failures are logged,
// not returned: a broken or expired record means starting unauthenticated,
// not refusing to start.
func (m *Manager) loadSaved(ctx context.Context) {
	tok, err := m.tokens.Load(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "loading saved token failed", "error", err)
		return
	}
	if tok == nil {
		m.logger.InfoContext(ctx, "no saved token, starting unauthenticated")
		return
	}

	if !tok.IsStale(m.now()) {
		m.setToken(tok)
		m.logger.InfoContext(ctx, "restored saved session", "token", tok)
		return
	}

	m.logger.InfoContext(ctx, "saved token is stale, refreshing", "token", tok)
	if _, err := m.refresh(ctx, tok); err != nil {
		m.logger.ErrorContext(ctx, "refreshing saved token failed", "error", err)
	}
}

// AuthURL returns the consent URL for the given CSRF state. The consent
// dialog is always shown so users can re-authorize visibly at any time.
func (m *Manager) AuthURL(state string) string {
	return m.exchanger.AuthCodeURL(state)
}

// HandleCallback finishes the authorization flow with the code from the
// redirect. On success the session is authenticated and the record
// persisted. Any failure leaves the session unauthenticated; the store is
// only touched once the exchange has succeeded.
func (m *Manager) HandleCallback(ctx context.Context, code string) error {
	tok, err := m.exchanger.Exchange(ctx, code)
	if err != nil {
		m.setToken(nil)
		m.logger.ErrorContext(ctx, "authorization code exchange failed", "error", err)
		return &ExchangeError{Op: "exchange_code", Err: err}
	}

	if err := m.tokens.Save(ctx, tok); err != nil {
		m.setToken(nil)
		m.logger.ErrorContext(ctx, "persisting token failed", "error", err)
		return &StoreError{Op: "save", Err: err}
	}

	m.setToken(tok)
	m.logger.InfoContext(ctx, "session authenticated", "token", tok)
	return nil
}

// Refresh exchanges a refresh token for a new record and persists it. With
// a nil tok the session's current record is used. A missing refresh token
// unauthenticates the session and returns ErrNoRefreshToken without
// touching the store.
func (m *Manager) Refresh(ctx context.Context, tok *domain.Token) (*domain.Token, error) {
	if tok == nil {
		tok = m.snapshot()
	}
	return m.refresh(ctx, tok)
}

// refresh performs one refresh exchange and persists the result. Failures
// drop the in-memory session; the stored record stays in place so a later
// run may retry.
func (m *Manager) refresh(ctx context.Context, tok *domain.Token) (*domain.Token, error) {
	if tok == nil || tok.RefreshToken == "" {
		m.setToken(nil)
		m.logger.WarnContext(ctx, "cannot refresh without refresh token")
		return nil, ErrNoRefreshToken
	}

	fresh, err := m.exchanger.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		m.setToken(nil)
		m.logger.ErrorContext(ctx, "token refresh failed", "error", err)
		return nil, &ExchangeError{Op: "refresh", Err: err}
	}

	if err := m.tokens.Save(ctx, fresh); err != nil {
		m.setToken(nil)
		m.logger.ErrorContext(ctx, "persisting refreshed token failed", "error", err)
		return nil, &StoreError{Op: "save", Err: err}
	}

	m.setToken(fresh)
	m.logger.InfoContext(ctx, "token refreshed", "token", fresh)
	return fresh, nil
}

// refreshIfStale returns a usable record, refreshing the current one first
// when it is inside the staleness margin. Concurrent callers share a
// single exchange.
func (m *Manager) refreshIfStale(ctx context.Context) (*domain.Token, error) {
	tok := m.snapshot()
	if tok == nil {
		return nil, ErrNotAuthenticated
	}
	if !tok.IsStale(m.now()) {
		return tok, nil
	}

	fresh, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		// Another caller may have refreshed while this one waited for
		// the flight.
		cur := m.snapshot()
		if cur != nil && !cur.IsStale(m.now()) {
			return cur, nil
		}
		return m.refresh(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	return fresh.(*domain.Token), nil
}

// Token returns a valid access token, transparently refreshing a stale
// record first. Returns ErrNotAuthenticated when no session exists.
func (m *Manager) Token(ctx context.Context) (string, error) {
	tok, err := m.refreshIfStale(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Client returns a Spotify Web API client bound to the current access
// token. The binding is static: this manager stays the only place that
// refreshes and persists tokens.
func (m *Manager) Client(ctx context.Context) (*spotify.Client, error) {
	access, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access, TokenType: "Bearer"})
	return spotify.New(oauth2.NewClient(ctx, src), m.clientOpts...), nil
}

// IsAuthenticated reports whether a usable session exists, refreshing a
// stale record on the way. It mutates state like Token does; use Status
// for a side-effect-free view.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, err := m.refreshIfStale(ctx)
	return err == nil
}

// Disconnect tears the session down: the persisted record is deleted, the
// cache wiped and the in-memory state reset. Every step runs regardless of
// earlier failures, which are collected and returned joined.
func (m *Manager) Disconnect(ctx context.Context) error {
	var errs []error
	if err := m.tokens.Delete(ctx); err != nil {
		errs = append(errs, &StoreError{Op: "delete", Err: err})
	}
	if err := m.cache.ClearAll(ctx); err != nil {
		errs = append(errs, &StoreError{Op: "clear_cache", Err: err})
	}
	m.setToken(nil)

	if err := errors.Join(errs...); err != nil {
		m.logger.ErrorContext(ctx, "disconnect finished with failures", "error", err)
		return err
	}
	m.logger.InfoContext(ctx, "session disconnected")
	return nil
}

// ClearCache wipes cached API data. Token state is untouched.
func (m *Manager) ClearCache(ctx context.Context) error {
	if err := m.cache.ClearAll(ctx); err != nil {
		m.logger.ErrorContext(ctx, "clearing cache failed", "error", err)
		return &StoreError{Op: "clear_cache", Err: err}
	}
	m.logger.InfoContext(ctx, "cache cleared")
	return nil
}

// Status returns a snapshot of the session state. A stale record reports
// as unauthenticated until something refreshes it.
func (m *Manager) Status() Status {
	tok := m.snapshot()
	return Status{
		Authenticated: tok != nil && !tok.IsStale(m.now()),
		Token:         tok,
	}
}

// snapshot returns a copy of the current record so callers never share
// mutable state.
func (m *Manager) snapshot() *domain.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// setToken stores its own copy so records handed to callers can never
// mutate manager state.
func (m *Manager) setToken(tok *domain.Token) {
	m.mu.Lock()
	m.current = tok.Clone()
	m.mu.Unlock()
}
