package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the identity under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. A zero ttl keeps the record until cleared.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

// Save implements Store. SET replaces the value atomically.
func (s *RedisStore) Save(ctx context.Context, identity Identity) error {
	data, err := encodeIdentity(identity)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("auth: redis store set: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Identity, bool, error) {
	payload, err := s.client.Get(ctx, s.redisKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, false, nil
		}
		return Identity{}, false, fmt.Errorf("auth: redis store get: %w", err)
	}
	identity, ok := decodeIdentity(payload)
	return identity, ok, nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.redisKey()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: redis store del: %w", err)
	}
	return nil
}

func (s *RedisStore) redisKey() string {
	return "session:" + s.key
}
