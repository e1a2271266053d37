package cache

import (
	"sync"
	"time"
)

// memoryEntry holds a cached value with its expiration time.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory store with per-entry TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves a value from the store.
// Returns the value and true if found and not expired, empty string and false otherwise.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false
	}

	return entry.value, true
}

// Put stores a value under key. A zero expiresAt means no expiration.
func (s *MemoryStore) Put(key, value string, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: expiresAt,
	}
	return nil
}

// Len returns the number of entries in the store (including expired ones).
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evict removes all expired entries and returns how many were deleted.
func (s *MemoryStore) Evict() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, key)
			deleted++
		}
	}
	return deleted
}

// Verify MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
