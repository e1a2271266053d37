// Package cache provides the shared translation result store.
package cache

import "time"

// Store is the contract the translation dispatcher needs from a result cache.
type Store interface {
	// Get retrieves a stored value. Returns empty string and false when the
	// key is absent or expired.
	Get(key string) (string, bool)

	// Put stores a value under key with the given TTL. A TTL of zero or less
	// means the entry never expires.
	Put(key, value string, ttl time.Duration) error
}
