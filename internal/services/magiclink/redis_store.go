// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package magiclink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "magiclink:"

// RedisStore keeps tokens as keys with a TTL. Redemption uses GETDEL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// ConnectRedis parses url, connects and pings.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Save(ctx context.Context, email, tokenHash string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}
	return s.rdb.Set(ctx, redisKeyPrefix+tokenHash, email, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, tokenHash string, _ time.Time) (string, error) {
	email, err := s.rdb.GetDel(ctx, redisKeyPrefix+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	return email, nil
}
