package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "translations"

// BoltStore persists translation results in a BoltDB file so the cache
// survives restarts on single-node deployments.
type BoltStore struct {
	db *bolt.DB
}

// boltEntry is the serialized form of one cached value.
type boltEntry struct {
	Value string `json:"value"`
	// ExpiresAt is a Unix nanosecond timestamp; zero means no expiration.
	ExpiresAt int64 `json:"expires_at"`
}

// NewBoltStore opens (or creates) the database file at dbPath.
func NewBoltStore(dbPath string) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %v", err)
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %v", err)
	}

	return &BoltStore{db: db}, nil
}

// Get retrieves a value from the database, honoring its expiration time.
func (s *BoltStore) Get(key string) (string, bool) {
	var entry boltEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("key not found")
		}

		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", false
	}

	if entry.ExpiresAt != 0 && time.Now().UnixNano() > entry.ExpiresAt {
		if err := s.Delete(key); err != nil {
			log.Warnf("[Cache] Failed to delete expired key %s: %v", key, err)
		}
		return "", false
	}

	return entry.Value, true
}

// Put stores a value with the given TTL.
func (s *BoltStore) Put(key, value string, ttl time.Duration) error {
	entry := boltEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl).UnixNano()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes a key from the database.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

// Evict removes all expired entries and returns how many were deleted.
func (s *BoltStore) Evict() int {
	now := time.Now().UnixNano()
	deleted := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry boltEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.ExpiresAt != 0 && now > entry.ExpiresAt {
				if err := c.Delete(); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		log.Warnf("[Cache] Eviction pass failed: %v", err)
	}

	return deleted
}

// Len returns the number of entries in the database (including expired ones).
func (s *BoltStore) Len() int {
	count := 0
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	return count
}

// Close closes the database connection.
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Verify BoltStore implements Store
var _ Store = (*BoltStore)(nil)
