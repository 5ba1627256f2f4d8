package mongo

import (
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long cached lookups (collection lists, schema
// samples) stay valid.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Session is the process-wide mutable session state: the active database
// name plus a bounded-lifetime cache keyed by operation and parameters. The
// active database is swapped wholesale, never mutated field by field; handlers
// receive the session explicitly rather than reading globals. The server is
// built for a single concurrent caller; the mutex keeps the map safe when
// requests overlap, but two racing database switches are last-write-wins.
type Session struct {
	mu       sync.RWMutex
	database string
	cache    map[string]cacheEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewSession creates a session with the given initial active database.
func NewSession(database string) *Session {
	return &Session{
		database: database,
		cache:    make(map[string]cacheEntry),
		ttl:      DefaultCacheTTL,
		now:      time.Now,
	}
}

// Database returns the active database name.
func (s *Session) Database() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.database
}

// Use switches the active database and drops all cached lookups, which were
// scoped to the previous database.
func (s *Session) Use(database string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.database = database
	s.cache = make(map[string]cacheEntry)
}

// Cached returns the cached value for key if present and unexpired.
func (s *Session) Cached(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || s.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Put stores value under key with the session's bounded lifetime.
func (s *Session) Put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{value: value, expiresAt: s.now().Add(s.ttl)}
}

// Invalidate drops every cached entry. Called after writes and DDL so stale
// listings never outlive a mutation.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
}
