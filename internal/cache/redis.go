package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/gtd_gateway/internal/config"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// RedisClient wraps the go-redis client with helper methods.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client from config.
func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// Get retrieves a value by key. A missing key yields ErrMiss.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

// errGuardChanged aborts SetIfEqual when the guard key moved.
var errGuardChanged = errors.New("guard key changed")

// GetInt64 returns the integer stored at key, or 0 when the key does not exist.
func (r *RedisClient) GetInt64(ctx context.Context, key string) (int64, error) {
	v, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// SetIfEqual stores value under key only while guardKey still holds guard.
// The check and the write run in one WATCH/MULTI transaction. stored is false
// when the guard no longer matches.
func (r *RedisClient) SetIfEqual(ctx context.Context, guardKey string, guard int64, key, value string, ttl time.Duration) (stored bool, err error) {
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, guardKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != guard {
			return errGuardChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttl)
			return nil
		})
		return err
	}, guardKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errGuardChanged), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, err
	}
}

// IncrAndDelete increments counterKey and removes keys atomically.
func (r *RedisClient) IncrAndDelete(ctx context.Context, counterKey string, keys ...string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, counterKey)
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		return nil
	})
	return err
}

// Ping checks the connection.
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
