package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions selects the Redis instance shared by every server replica
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisClient holds the connection behind the shared limiter.
// Without an address it stays disabled and the limiter keeps its buckets in memory.
type RedisClient struct {
	client *redis.Client
	addr   string
}

// NewRedisClient connects to opts.Addr. An unreachable server yields a disabled client and an error.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*RedisClient, error) {
	if opts.Addr == "" {
		return &RedisClient{}, nil
	}

	// Rate checks sit on the request path, so timeouts are short and a slow Redis falls back quickly.
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
		PoolSize:     10,
		PoolTimeout:  time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return &RedisClient{addr: opts.Addr}, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}

	slog.Info("Rate limiting backed by Redis", "addr", opts.Addr, "db", opts.DB)
	return &RedisClient{client: client, addr: opts.Addr}, nil
}

// IsEnabled reports whether a live connection is held
func (r *RedisClient) IsEnabled() bool {
	return r != nil && r.client != nil
}

// Addr returns the configured address, empty when Redis was not requested
func (r *RedisClient) Addr() string {
	if r == nil {
		return ""
	}
	return r.addr
}

// Ping checks the connection
func (r *RedisClient) Ping(ctx context.Context) error {
	if !r.IsEnabled() {
		return fmt.Errorf("redis is disabled")
	}
	return r.client.Ping(ctx).Err()
}

// PoolStats reports connection pool counters; ok is false when disabled
func (r *RedisClient) PoolStats() (stats redis.PoolStats, ok bool) {
	if !r.IsEnabled() {
		return redis.PoolStats{}, false
	}
	return *r.client.PoolStats(), true
}

// Close releases the connection
func (r *RedisClient) Close() error {
	if !r.IsEnabled() {
		return nil
	}
	return r.client.Close()
}
