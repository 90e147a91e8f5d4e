package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mqtt-panel/config"
	"mqtt-panel/storage"

	"github.com/go-redis/redis/v8"
)

// RedisClient stores dashboard documents as plain Redis strings.
type RedisClient struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewWithClient(rdb, cfg.RedisKeyPrefix, logger)
	c.logger.Info("Redis connected successfully", "addr", rdb.Options().Addr, "db", cfg.RedisDB)
	return c, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, prefix string, logger *slog.Logger) *RedisClient {
	return &RedisClient{
		client: rdb,
		prefix: prefix,
		logger: logger.With("component", "redis_store"),
	}
}

func (r *RedisClient) key(key string) string {
	return r.prefix + key
}

func (r *RedisClient) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}
	return val, nil
}

// Save stores the document without expiry; dashboard records live until deleted.
func (r *RedisClient) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s to Redis: %w", key, err)
	}
	r.logger.Debug("Document saved", "key", key, "size", len(value))
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

var _ storage.Store = (*RedisClient)(nil)
