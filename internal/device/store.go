// Package device implements the client-side identity primitives: a persisted
// per-device ID and a deterministic hardware/browser fingerprint, both kept
// in a redundant storage chain so one cleared tier does not lose the value.
package device

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is one storage tier for identity values. Implementations are small
// string key/value stores; Get misses are not errors.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Chain reads an ordered list of stores and writes through to all of them.
// Earlier stores are the more durable tiers.
type Chain struct {
	stores []Store
}

func NewChain(stores ...Store) *Chain {
	return &Chain{stores: stores}
}

// Get returns the first hit across the tiers.
func (c *Chain) Get(key string) (string, bool) {
	for _, s := range c.stores {
		if v, ok := s.Get(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// GetOrCreate returns the stored value for key, generating it with gen when
// every tier misses. Either way the value is written back to all tiers, so a
// hit in a fallback tier restores the primary one. Write failures are
// ignored: a best-effort tier that rejects a write must not break identity.
func (c *Chain) GetOrCreate(key string, gen func() string) string {
	value, ok := c.Get(key)
	if !ok {
		value = gen()
	}
	for _, s := range c.stores {
		_ = s.Set(key, value)
	}
	return value
}

// Empty reports whether the chain has no backing stores at all (no client
// context).
func (c *Chain) Empty() bool {
	return c == nil || len(c.stores) == 0
}

// MemoryStore is the session-scoped tier: values live for the process only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// FileStore is the durable tier: one file per key under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Keys are fixed identifiers, but keep path characters out regardless.
	safe := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, key)
	return filepath.Join(s.dir, safe)
}

func (s *FileStore) Get(key string) (string, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(string(data))
	return v, v != ""
}

func (s *FileStore) Set(key, value string) error {
	return os.WriteFile(s.path(key), []byte(value), 0o644)
}
