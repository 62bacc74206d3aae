package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int // per client IP
	Burst             int // 0 means equal to RequestsPerMinute
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 30,
		Burst:             10,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per IP with Redis when available and an in-memory token bucket otherwise
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex
	idleTTL          time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter. redisClient and metrics may be nil.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerMinute
	}
	if redisClient == nil {
		redisClient = &RedisClient{}
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		fallbackLimiters: make(map[string]*fallbackEntry),
		idleTTL:          10 * time.Minute,
		stop:             make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.client)
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Info("Using in-memory rate limiting")
	}

	go rl.cleanupFallbackLimiters()

	return rl
}

// AllowIP checks if an IP address may make another request this minute
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	key := fmt.Sprintf("aivd:ratelimit:ip:%s", ip)

	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
	}

	return rl.allowFallback(key), nil
}

// allowRedis performs rate limiting using redis_rate's GCRA
func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (*Result, error) {
	limit := redis_rate.Limit{
		Rate:   rl.config.RequestsPerMinute,
		Burst:  rl.config.Burst,
		Period: time.Minute,
	}

	res, err := rl.redisLimiter.Allow(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowFallback performs rate limiting using an in-memory token bucket per key
func (rl *RateLimiter) allowFallback(key string) *Result {
	now := time.Now()

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		rps := rate.Limit(float64(rl.config.RequestsPerMinute) / time.Minute.Seconds())
		entry = &fallbackEntry{limiter: rate.NewLimiter(rps, rl.config.Burst)}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	limiter := entry.limiter
	allowed := limiter.AllowN(now, 1)

	remaining := int(limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Limit:     rl.config.RequestsPerMinute,
		Remaining: remaining,
		ResetAt:   now.Add(time.Minute),
	}

	if !allowed {
		r := limiter.ReserveN(now, 1)
		result.RetryAfter = r.DelayFrom(now)
		r.CancelAt(now)
		result.ResetAt = now.Add(result.RetryAfter)
	}

	return result
}

// cleanupFallbackLimiters drops buckets for clients that have gone quiet
func (rl *RateLimiter) cleanupFallbackLimiters() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.pruneIdle(now)
		}
	}
}

func (rl *RateLimiter) pruneIdle(now time.Time) int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key, entry := range rl.fallbackLimiters {
		if now.Sub(entry.lastSeen) > rl.idleTTL {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

// Backend names where request counts are kept
func (rl *RateLimiter) Backend() string {
	if rl.redisClient.IsEnabled() && rl.redisLimiter != nil {
		return backendRedis
	}
	return backendMemory
}

func (rl *RateLimiter) trackedClients() int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()
	return len(rl.fallbackLimiters)
}
