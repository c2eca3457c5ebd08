// Package kv provides the shared TTL-capable key/value store that all
// cross-worker coordination (cooldowns, in-progress markers, answer memory)
// goes through. Workers may run in separate processes, so there are no
// in-process locks here; everything is read-then-conditional-write on Redis.
package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/airwin/platform/internal/errors"
)

// Per-call timeout. Coordination keys are tiny; a slow store is a broken store.
const opTimeout = 2 * time.Second

// Store is the coordination surface used by the guard and answer memory.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	client *redis.Client
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection. Store
// unavailability at startup is fatal to the caller.
func NewRedisStore(cfg Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.StoreUnavailable, "redis connection failed")
	}

	return &RedisStore{client: client}, nil
}

// NewFromClient wraps an existing client (used by tests with miniredis).
func NewFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

// Get retrieves a value. The second return is false when the key is absent.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.Wrapf(err, apperrors.StoreUnavailable, "get %s", key)
	}
	return val, true, nil
}

// Set stores a value with TTL (zero TTL means no expiry).
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.StoreUnavailable, "set %s", key)
	}
	return nil
}

// SetNX stores a value only if the key does not exist. Returns true when this
// caller won the write.
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, apperrors.Wrapf(err, apperrors.StoreUnavailable, "setnx %s", key)
	}
	return ok, nil
}

// Delete removes a key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.StoreUnavailable, "del %s", key)
	}
	return nil
}

// Exists reports whether a key is present; its value is irrelevant.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperrors.Wrapf(err, apperrors.StoreUnavailable, "exists %s", key)
	}
	return n > 0, nil
}

// HSet sets one field in a hash.
func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.HSet(ctx, key, field, value).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.StoreUnavailable, "hset %s", key)
	}
	return nil
}

// HGetAll returns all fields of a hash; empty map when absent.
func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.StoreUnavailable, "hgetall %s", key)
	}
	return m, nil
}

// HDel removes fields from a hash.
func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.client.HDel(ctx, key, fields...).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.StoreUnavailable, "hdel %s", key)
	}
	return nil
}

// Ping checks store availability.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.StoreUnavailable, "ping")
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
