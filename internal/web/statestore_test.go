package web

import (
	"testing"
	"time"
)

func TestStateStoreIssueRedeem(t *testing.T) {
	ss := newStateStore(stateTTL)
	defer ss.Stop()

	nonce := ss.Issue()
	if nonce == "" {
		t.Fatal("Issue() returned empty nonce")
	}

	if !ss.Redeem(nonce) {
		t.Error("Redeem() = false for freshly issued nonce, want true")
	}
}

func TestStateStoreNoncesAreUnique(t *testing.T) {
	ss := newStateStore(stateTTL)
	defer ss.Stop()

	seen := make(map[string]bool)
	for range 100 {
		nonce := ss.Issue()
		if seen[nonce] {
			t.Fatalf("Issue() returned duplicate nonce %q", nonce)
		}
		seen[nonce] = true
	}
}

func TestStateStoreRedeemUnknown(t *testing.T) {
	ss := newStateStore(stateTTL)
	defer ss.Stop()

	if ss.Redeem("never-issued") {
		t.Error("Redeem() = true for unknown nonce, want false")
	}
}

func TestStateStoreSingleUse(t *testing.T) {
	ss := newStateStore(stateTTL)
	defer ss.Stop()

	nonce := ss.Issue()
	if !ss.Redeem(nonce) {
		t.Fatal("first Redeem() = false, want true")
	}
	if ss.Redeem(nonce) {
		t.Error("second Redeem() = true, nonce must be single-use")
	}
}

func TestStateStoreExpiry(t *testing.T) {
	ss := newStateStore(stateTTL)
	defer ss.Stop()

	nonce := ss.Issue()

	// Backdate the issue instant past the TTL.
	ss.mu.Lock()
	ss.states[nonce] = time.Now().Add(-stateTTL - time.Minute)
	ss.mu.Unlock()

	if ss.Redeem(nonce) {
		t.Error("Redeem() = true for expired nonce, want false")
	}
}

func TestStateStoreCleanup(t *testing.T) {
	ss := newStateStore(stateTTL)
	defer ss.Stop()

	expired := ss.Issue()
	fresh := ss.Issue()

	ss.mu.Lock()
	ss.states[expired] = time.Now().Add(-stateTTL - time.Minute)
	ss.mu.Unlock()

	ss.cleanup()

	ss.mu.Lock()
	_, hasExpired := ss.states[expired]
	_, hasFresh := ss.states[fresh]
	ss.mu.Unlock()

	if hasExpired {
		t.Error("cleanup() left the expired nonce in place")
	}
	if !hasFresh {
		t.Error("cleanup() dropped an unexpired nonce")
	}
}
