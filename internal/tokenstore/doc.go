// Package tokenstore provides persistent storage for the session's token record.
//
// Two backends with different security and deployment tradeoffs:
//   - File: local filesystem storage with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// Both are writable: the session manager persists every exchange and refresh
// result and deletes the record on disconnect.
package tokenstore
