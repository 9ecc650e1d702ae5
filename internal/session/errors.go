package session

import (
	"errors"
	"fmt"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrNotAuthenticated is returned when an operation needs an
	// established session and none exists.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	// ErrNoRefreshToken is returned when a refresh is required but the
	// record carries no refresh token. Re-authorization is the only way
	// forward.
	ErrNoRefreshToken = errors.New("session: no refresh token")
)

// ExchangeError reports a failed exchange with the authorization server.
type ExchangeError struct {
	Op  string // "exchange_code" or "refresh"
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("session: %s failed: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// StoreError reports a failed token store or cache store operation.
type StoreError struct {
	Op  string // "save", "delete" or "clear_cache"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session: store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
