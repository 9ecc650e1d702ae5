package tokenstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"turntable/internal/domain"
)

func testToken() *domain.Token {
	return &domain.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		ExpiresAt:    1_700_000_000,
		Scope:        "user-library-read",
	}
}

func TestNewFileStore(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		if _, err := NewFileStore(""); err == nil {
			t.Error("NewFileStore(\"\") should fail")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "deeper", "token.json")
		if _, err := NewFileStore(path); err != nil {
			t.Fatalf("NewFileStore() unexpected error: %v", err)
		}
		info, err := os.Stat(filepath.Dir(path))
		if err != nil {
			t.Fatalf("parent directory not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0700 {
			t.Errorf("parent directory permissions = %04o, want 0700", perm)
		}
	})
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}

	want := testToken()
	if err := store.Save(t.Context(), want); err != nil {
		t.Fatalf("Save() unexpected error: %v", err)
	}

	got, err := store.Load(t.Context())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got == nil || *got != *want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file permissions = %04o, want 0600", perm)
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "token.json"))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save(t.Context(), testToken()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(t.Context())
	if err != nil {
		t.Fatalf("Load() on absent file: error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("Load() on absent file = %+v, want nil", got)
	}
}

func TestFileStoreLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(t.Context()); err == nil {
		t.Error("Load() on malformed file should fail")
	}
}

func TestFileStoreLoadInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(t.Context(), testToken()); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatal(err)
	}

	_, err = store.Load(t.Context())
	if err == nil {
		t.Fatal("Load() with 0644 permissions should fail")
	}
	if !strings.Contains(err.Error(), "insecure permissions") {
		t.Errorf("error %q should mention insecure permissions", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(t.Context(), testToken()); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(t.Context()); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if got, err := store.Load(t.Context()); err != nil || got != nil {
		t.Errorf("Load() after delete = (%+v, %v), want (nil, nil)", got, err)
	}

	// Deleting what is already gone stays quiet.
	if err := store.Delete(t.Context()); err != nil {
		t.Errorf("Delete() on absent file: error = %v, want nil", err)
	}
}
