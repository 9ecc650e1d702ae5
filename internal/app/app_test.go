package app

import (
	"context"
	"testing"
	"time"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Spotify.ClientID = ""
	cfg.Spotify.ClientSecret = ""

	if _, err := New(t.Context(), cfg); err == nil {
		t.Error("New() with missing credentials should fail")
	}
}

func TestNewManagerStartsUnauthenticated(t *testing.T) {
	manager, err := NewManager(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if manager.IsAuthenticated(t.Context()) {
		t.Error("IsAuthenticated() = true for an empty token store")
	}
}

func TestAddress(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 9999

	application, err := New(t.Context(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got, want := application.Address(), "localhost:9999"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0 // ephemeral port, the test never dials in

	application, err := New(t.Context(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want graceful stop", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancel")
	}
}
