package spotify

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"turntable/internal/domain"
)

// Credentials identify the registered Spotify application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// CredentialsFromEnv resolves credentials from the SPOTIFY_* environment
// variables. Empty fields are legal here; NewAuthenticator rejects them.
func CredentialsFromEnv() Credentials {
	c := Credentials{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURI:  os.Getenv(EnvRedirectURI),
	}
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	return c
}

// MissingCredentialsError reports the credential fields absent at
// construction time, named by their environment variables.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return "spotify: missing credentials: " + strings.Join(e.Missing, ", ")
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithEndpoint overrides the OAuth2 endpoints. Tests use it to point the
// authenticator at a local token server.
func WithEndpoint(endpoint oauth2.Endpoint) AuthenticatorOption {
	return func(a *Authenticator) {
		a.conf.Endpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client used for token exchanges.
func WithHTTPClient(client *http.Client) AuthenticatorOption {
	return func(a *Authenticator) {
		a.httpClient = client
	}
}

// Authenticator sequences the authorization code flow against the Accounts
// service. It is stateless: every call carries the material it needs.
type Authenticator struct {
	conf       *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewAuthenticator validates the credentials and builds an Authenticator.
// Missing client id or secret is fatal and reported with the environment
// variable names the caller should set.
func NewAuthenticator(creds Credentials, opts ...AuthenticatorOption) (*Authenticator, error) {
	var missing []string
	if creds.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if creds.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}
	if len(missing) > 0 {
		return nil, &MissingCredentialsError{Missing: missing}
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = DefaultRedirectURI
	}

	a := &Authenticator{
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     Endpoint,
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AuthCodeURL returns the consent URL for the given CSRF state. The consent
// dialog is always shown, even for users who already granted access, so a
// visible re-authorization is possible at any time.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.conf.AuthCodeURL(state, spotifyauth.ShowDialog)
}

// Exchange turns an authorization code into a token record.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*domain.Token, error) {
	tok, err := a.conf.Exchange(a.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return a.record(tok, ""), nil
}

// Refresh exchanges a refresh token for a fresh token record. Spotify
// usually omits refresh_token from refresh responses; the prior one is
// carried over so the session stays renewable.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*domain.Token, error) {
	src := a.conf.TokenSource(a.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing access token: %w", err)
	}
	return a.record(tok, refreshToken), nil
}

// oauthContext injects the configured HTTP client the way x/oauth2 expects.
func (a *Authenticator) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

func (a *Authenticator) record(tok *oauth2.Token, prevRefresh string) *domain.Token {
	expiry := tok.Expiry
	if expiry.IsZero() {
		// The Accounts service always sends expires_in. Guard against a
		// missing one rather than storing a nonsense timestamp.
		expiry = a.now().Add(time.Hour)
	}
	rec := &domain.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiry.Unix(),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		rec.Scope = scope
	}
	if rec.RefreshToken == "" {
		rec.RefreshToken = prevRefresh
	}
	return rec
}
