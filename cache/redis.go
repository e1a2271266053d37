package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed result store, shared between deployments.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis store from a connection URL
// (e.g. "redis://localhost:6379").
func NewRedisStore(url, keyPrefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisStoreFromClient(client, keyPrefix), nil
}

// NewRedisStoreFromClient creates a RedisStore from an existing Redis client.
func NewRedisStoreFromClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "deeplx:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a value from Redis.
func (s *RedisStore) Get(key string) (string, bool) {
	ctx := context.Background()
	val, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		// Treat transport errors as a cache miss
		return "", false
	}
	return val, true
}

// Put stores a value in Redis with the given TTL.
func (s *RedisStore) Put(key, value string, ttl time.Duration) error {
	ctx := context.Background()
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping tests the Redis connection.
func (s *RedisStore) Ping() error {
	ctx := context.Background()
	return s.client.Ping(ctx).Err()
}

// Verify RedisStore implements Store
var _ Store = (*RedisStore)(nil)
