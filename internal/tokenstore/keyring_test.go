package tokenstore

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestNewKeyringStoreValidation(t *testing.T) {
	tests := []struct {
		name    string
		service string
		user    string
		wantErr bool
	}{
		{"empty service", "", "alice", true},
		{"empty user", "turntable", "", true},
		{"both set", "turntable", "alice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeyringStore(tt.service, tt.user)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewKeyringStore() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKeyringStoreRoundTrip(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore("turntable-test", "alice")
	if err != nil {
		t.Fatal(err)
	}

	if got, err := store.Load(t.Context()); err != nil || got != nil {
		t.Fatalf("Load() before save = (%+v, %v), want (nil, nil)", got, err)
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

	if err := store.Delete(t.Context()); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if got, err := store.Load(t.Context()); err != nil || got != nil {
		t.Errorf("Load() after delete = (%+v, %v), want (nil, nil)", got, err)
	}

	// Deleting what is already gone stays quiet.
	if err := store.Delete(t.Context()); err != nil {
		t.Errorf("Delete() on absent entry: error = %v, want nil", err)
	}
}
