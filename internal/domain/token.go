// Package domain holds the token record shared by the session manager,
// the stores, and the HTTP surface.
package domain

import (
	"log/slog"
	"time"
)

// StalenessMargin is how close to expiry a token may get before it is
// considered stale and must be refreshed before use.
const StalenessMargin = 60 * time.Second

// Token is the persisted result of an authorization code or refresh token
// exchange. ExpiresAt is absolute unix seconds so the stored form stays
// meaningful across process restarts.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	Scope        string `json:"scope,omitempty"`
}

// Expiry returns ExpiresAt as a time.Time.
func (t *Token) Expiry() time.Time {
	return time.Unix(t.ExpiresAt, 0)
}

// IsStale reports whether the token is expired or expires within
// StalenessMargin of now. Stale tokens must not be handed to callers.
func (t *Token) IsStale(now time.Time) bool {
	return t.Expiry().Sub(now) < StalenessMargin
}

// Clone returns a copy of the token, or nil for a nil receiver.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// LogValue implements slog.LogValuer. Only structural fields reach log
// output, never token material.
func (t *Token) LogValue() slog.Value {
	if t == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Time("expires_at", t.Expiry()),
		slog.Bool("has_refresh_token", t.RefreshToken != ""),
		slog.String("scope", t.Scope),
	)
}
