package tokenstore

import (
	"context"

	"turntable/internal/domain"
)

// Store persists the session's token record between runs.
//
// An absent record is the unauthenticated state, not an error.
type Store interface {
	// Load returns the stored record, or (nil, nil) when none exists.
	Load(ctx context.Context) (*domain.Token, error)

	// Save persists the record, replacing any existing one.
	Save(ctx context.Context, token *domain.Token) error

	// Delete removes the stored record. Deleting an absent record is not
	// an error.
	Delete(ctx context.Context) error
}
