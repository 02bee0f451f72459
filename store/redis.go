package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps records as plain Redis strings without expiry.
type RedisStore struct {
	rc *redis.Client
}

// OpenRedis connects using a redis:// URL and validates the connection with PING.
func OpenRedis(url string, _ Options) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DialTimeout = 3 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second

	rs := NewRedisStore(redis.NewClient(opt))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rs, nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rc *redis.Client) *RedisStore {
	return &RedisStore{rc: rc}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rc.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rc.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rc.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rc.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rc.Close()
}
