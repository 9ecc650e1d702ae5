package cachestore

import (
	"os"
	"path/filepath"
	"testing"
)

type profile struct {
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := profile{DisplayName: "Alice", Country: "DE"}
	if err := store.Put(t.Context(), "user_profile", want); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	var got profile
	found, err := store.Get(t.Context(), "user_profile", &got)
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestFileStoreGetAbsent(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var got profile
	found, err := store.Get(t.Context(), "nothing_here", &got)
	if err != nil {
		t.Fatalf("Get() on absent entry: error = %v, want nil", err)
	}
	if found {
		t.Error("Get() on absent entry found = true, want false")
	}
}

func TestFileStoreClearAll(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"user_profile", "playlists", "top_tracks"} {
		if err := store.Put(t.Context(), key, profile{DisplayName: key}); err != nil {
			t.Fatal(err)
		}
	}
	// Foreign files survive a clear.
	keep := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(keep, []byte("keep me"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := store.ClearAll(t.Context()); err != nil {
		t.Fatalf("ClearAll() unexpected error: %v", err)
	}

	var got profile
	for _, key := range []string{"user_profile", "playlists", "top_tracks"} {
		if found, _ := store.Get(t.Context(), key, &got); found {
			t.Errorf("entry %s survived ClearAll()", key)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("foreign file removed by ClearAll(): %v", err)
	}

	// Clearing an already empty cache stays quiet.
	if err := store.ClearAll(t.Context()); err != nil {
		t.Errorf("ClearAll() on empty cache: error = %v, want nil", err)
	}
}

func TestFileStoreClearAllMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	if err := store.ClearAll(t.Context()); err != nil {
		t.Errorf("ClearAll() on missing directory: error = %v, want nil", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"user_profile", "user_profile"},
		{"top-tracks.2024", "top-tracks.2024"},
		{"../escape", ".._escape"},
		{"spaced out/key", "spaced_out_key"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := sanitizeKey(tt.key); got != tt.want {
				t.Errorf("sanitizeKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
