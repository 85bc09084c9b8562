package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// TokenStore holds CAPTCHA tokens between the client's store call and the
// vote submission that consumes them. A token is an unsigned, client-built
// opaque string; the server's guarantee is presence, freshness and
// single-use, nothing about the challenge content itself.
type TokenStore interface {
	// Store records the token with a fresh TTL, overwriting any prior entry.
	Store(token string)
	// Verify consumes the token: true exactly once for an unexpired token,
	// false forever after (and false for unknown or expired tokens).
	Verify(token string) bool
	// Stop releases background resources.
	Stop()
}

const (
	tokenTTL      = 5 * time.Minute
	sweepInterval = 60 * time.Second
)

// MemoryTokenStore is the single-instance TokenStore: a mutex-guarded map of
// token to expiry with a periodic sweep so never-consumed tokens do not
// accumulate. Multi-instance deployments use RedisTokenStore instead.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	ttl    time.Duration
	done   chan struct{}
	once   sync.Once
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return newMemoryTokenStore(tokenTTL, sweepInterval)
}

func newMemoryTokenStore(ttl, sweep time.Duration) *MemoryTokenStore {
	s := &MemoryTokenStore{
		tokens: make(map[string]time.Time),
		ttl:    ttl,
		done:   make(chan struct{}),
	}
	go s.sweepLoop(sweep)
	return s
}

func (s *MemoryTokenStore) Store(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = time.Now().Add(s.ttl)
}

func (s *MemoryTokenStore) Verify(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}

	// Expired entries count as absent; delete lazily.
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}

	// Valid: consume it so it can never verify again.
	delete(s.tokens, token)
	return true
}

func (s *MemoryTokenStore) Stop() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *MemoryTokenStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryTokenStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, expiry := range s.tokens {
		if now.After(expiry) {
			delete(s.tokens, token)
			removed++
		}
	}
	if removed > 0 {
		logrus.Debugf("Token sweep removed %d expired CAPTCHA tokens", removed)
	}
}
