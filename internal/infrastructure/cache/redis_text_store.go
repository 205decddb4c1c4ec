package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTextStore is an optional second-level store for extracted
// article text, shared across instances. The in-process memoizer stays
// the first level; this store only saves a re-scrape after a restart
// or on another instance. Lookups and writes are best-effort: a Redis
// failure degrades to a fresh extraction, never to a failed request.
type RedisTextStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTextStore creates a Redis-backed article text store and
// verifies the connection.
func NewRedisTextStore(cfg RedisConfig, ttl time.Duration) (*RedisTextStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTextStore{
		client:    client,
		keyPrefix: "visualex:article:",
		ttl:       ttl,
	}, nil
}

// NewRedisTextStoreWithClient creates a store with an existing client.
// Useful for tests or when sharing a client across components.
func NewRedisTextStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisTextStore {
	if keyPrefix == "" {
		keyPrefix = "visualex:article:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTextStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Get returns the stored text for key, or ok=false on miss or error.
func (s *RedisTextStore) Get(ctx context.Context, key string) (text string, ok bool) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores text under key with the configured TTL.
func (s *RedisTextStore) Set(ctx context.Context, key, text string) error {
	return s.client.Set(ctx, s.keyPrefix+key, text, s.ttl).Err()
}

// Close closes the underlying Redis client
func (s *RedisTextStore) Close() error {
	return s.client.Close()
}
