package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ticket-metrics:weather:"

// RedisStore keeps one entry per location, expiring with the cache TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl is applied as the key expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(location string) string {
	return redisKeyPrefix + strings.ToLower(location)
}

func (s *RedisStore) Get(ctx context.Context, location string) (Entry, error) {
	data, err := s.client.Get(ctx, redisKey(location)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrCacheMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("redis get weather: %w", err)
	}
	return decodeEntry(data)
}

func (s *RedisStore) Put(ctx context.Context, location string, e Entry) error {
	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(location), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set weather: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, location string) error {
	if err := s.client.Del(ctx, redisKey(location)).Err(); err != nil {
		return fmt.Errorf("redis del weather: %w", err)
	}
	return nil
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
