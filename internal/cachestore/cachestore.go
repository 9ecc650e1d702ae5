// Package cachestore provides file-backed storage for API responses the
// host application derives from the session (profiles, playlists, library
// snapshots). Entries are disposable: disconnecting wipes them all.
package cachestore

import "context"

// Store holds cached entries keyed by name.
type Store interface {
	// Put persists the value under key, replacing any existing entry.
	Put(ctx context.Context, key string, value any) error

	// Get reads the entry under key into value. The boolean reports
	// whether an entry existed.
	Get(ctx context.Context, key string, value any) (bool, error)

	// ClearAll removes every entry. An empty or missing cache is not an
	// error.
	ClearAll(ctx context.Context) error
}
