package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// stateTTL is how long an issued state parameter stays redeemable. Users
// abandoning the consent dialog and coming back later than this must start
// over at /login.
const stateTTL = 10 * time.Minute

// stateStore issues and redeems the CSRF state parameters that link a
// callback to the /login request that started it. States are single-use:
// redeeming one deletes it, so a replayed callback fails.
type stateStore struct {
	mu     sync.Mutex
	states map[string]time.Time // nonce → issued at

	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

func newStateStore(ttl time.Duration) *stateStore {
	ss := &stateStore{
		states: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go ss.cleanupLoop()
	return ss
}

// Issue creates, stores and returns a fresh state nonce.
func (ss *stateStore) Issue() string {
	nonce := uuid.NewString()
	ss.mu.Lock()
	ss.states[nonce] = ss.now()
	ss.mu.Unlock()
	return nonce
}

// Redeem reports whether the nonce was issued here, is unexpired and has
// not been redeemed before. The nonce is consumed either way.
func (ss *stateStore) Redeem(nonce string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	issuedAt, ok := ss.states[nonce]
	if !ok {
		return false
	}
	delete(ss.states, nonce)
	return ss.now().Sub(issuedAt) <= ss.ttl
}

// Stop ends the background cleanup goroutine. Safe to call more than once.
func (ss *stateStore) Stop() {
	ss.once.Do(func() { close(ss.stop) })
}

// cleanupLoop drops expired states so abandoned logins do not accumulate.
func (ss *stateStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.cleanup()
		case <-ss.stop:
			return
		}
	}
}

func (ss *stateStore) cleanup() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for nonce, issuedAt := range ss.states {
		if ss.now().Sub(issuedAt) > ss.ttl {
			delete(ss.states, nonce)
		}
	}
}
