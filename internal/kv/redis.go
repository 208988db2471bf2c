package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs the kv contract with Redis. Scalar keys map to
// SET/GET, list keys to RPUSH/LRANGE, enumeration to KEYS.
//
// KEYS scans the whole keyspace and can be O(total keys) on a busy
// server; acceptable at lunch-ordering scale.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

var _ Store = (*RedisStore)(nil)

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %v", key, ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w: %v", key, ErrUnavailable, err)
	}
	return v, true, nil
}

func (r *RedisStore) Append(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := r.client.RPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w: %v", key, ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, key string) ([]string, error) {
	out, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w: %v", key, ErrUnavailable, err)
	}
	return out, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w: %v", key, ErrUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	out, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys %s: %w: %v", pattern, ErrUnavailable, err)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
