package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/dusk-indust/pbscope/internal/discovery"
)

// Discoverer produces a fresh permission model.
type Discoverer interface {
	Discover(ctx context.Context) (*discovery.Permissions, error)
}

// CredentialKey derives a cache key from an API token without keeping the
// token itself in memory as a map key.
func CredentialKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

type entry struct {
	perms     *discovery.Permissions
	expiresAt time.Time
}

// Store is a concurrency-safe, in-memory, time-bounded store of discovered
// permissions keyed by credential identity. Entries are kept in insertion
// order so the oldest is evicted first when the store is full.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]entry
	orderIDs []string // insertion-order keys
	ttl      time.Duration
	maxSize  int
	now      func() time.Time
}

// NewStore returns a Store whose entries expire after ttl. maxSize <= 0
// means unbounded.
func NewStore(ttl time.Duration, maxSize int) *Store {
	return &Store{
		entries:  make(map[string]entry),
		orderIDs: make([]string, 0),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
	}
}

// Get returns a copy of the permissions stored under key. Expired entries
// are reported as misses.
func (s *Store) Get(key string) (*discovery.Permissions, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.perms.Clone(), true
}

// Put stores a copy of perms under key, replacing any existing entry and
// resetting its expiry.
func (s *Store) Put(key string, perms *discovery.Permissions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		s.removeOrder(key)
	}
	s.entries[key] = entry{perms: perms.Clone(), expiresAt: s.now().Add(s.ttl)}
	s.orderIDs = append(s.orderIDs, key)

	for s.maxSize > 0 && len(s.orderIDs) > s.maxSize {
		oldest := s.orderIDs[0]
		s.orderIDs = s.orderIDs[1:]
		delete(s.entries, oldest)
	}
}

// Invalidate drops the entry for key, if any.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		delete(s.entries, key)
		s.removeOrder(key)
	}
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrDiscover returns the cached permissions for key, running d and
// storing its result on a miss. Discovery errors are returned and nothing
// is stored.
func (s *Store) GetOrDiscover(ctx context.Context, key string, d Discoverer) (*discovery.Permissions, error) {
	if perms, ok := s.Get(key); ok {
		return perms, nil
	}
	perms, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	s.Put(key, perms)
	return perms, nil
}

func (s *Store) removeOrder(key string) {
	for i, id := range s.orderIDs {
		if id == key {
			s.orderIDs = append(s.orderIDs[:i], s.orderIDs[i+1:]...)
			return
		}
	}
}
