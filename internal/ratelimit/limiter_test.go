package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
)

func TestNewRedisClient(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		wantErr  bool
		wantAddr string
	}{
		{name: "no address", addr: ""},
		{name: "unreachable", addr: "127.0.0.1:1", wantErr: true, wantAddr: "127.0.0.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewRedisClient(context.Background(), RedisOptions{Addr: tt.addr})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, client)
			assert.False(t, client.IsEnabled())
			assert.Equal(t, tt.wantAddr, client.Addr())
			assert.Error(t, client.Ping(context.Background()))
			_, ok := client.PoolStats()
			assert.False(t, ok)
			assert.NoError(t, client.Close())
		})
	}
}

func TestRateLimiterFallbackMode(t *testing.T) {
	limiter := NewRateLimiter(nil, Config{RequestsPerMinute: 5, Burst: 5}, nil)
	defer limiter.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "Request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
	}

	result, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed, "6th request should be blocked")
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.Equal(t, 0, result.Remaining)

	other, err := limiter.AllowIP(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "limits are per IP")
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := NewRateLimiter(nil, Config{}, nil)
	defer limiter.Close()

	assert.Equal(t, DefaultConfig().RequestsPerMinute, limiter.config.RequestsPerMinute)
	assert.Equal(t, limiter.config.RequestsPerMinute, limiter.config.Burst)
	assert.Equal(t, "memory", limiter.Backend())
}

func TestRateLimiterPruneIdle(t *testing.T) {
	limiter := NewRateLimiter(nil, Config{RequestsPerMinute: 10}, nil)
	defer limiter.Close()

	_, _ = limiter.AllowIP(context.Background(), "10.0.0.1")
	_, _ = limiter.AllowIP(context.Background(), "10.0.0.2")
	assert.Equal(t, 2, limiter.trackedClients())

	assert.Equal(t, 0, limiter.pruneIdle(time.Now()))
	assert.Equal(t, 2, limiter.pruneIdle(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, limiter.trackedClients())
}

func TestStatsCollector(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		limiter := NewRateLimiter(nil, Config{RequestsPerMinute: 10}, nil)
		defer limiter.Close()

		_, _ = limiter.AllowIP(context.Background(), "10.0.0.1")
		_, _ = limiter.AllowIP(context.Background(), "10.0.0.2")

		expected := `
# HELP aivd_ratelimit_backend Rate limit backend in use (1 for the active one)
# TYPE aivd_ratelimit_backend gauge
aivd_ratelimit_backend{backend="memory"} 1
aivd_ratelimit_backend{backend="redis"} 0
# HELP aivd_ratelimit_memory_clients Client IPs with an in-memory token bucket
# TYPE aivd_ratelimit_memory_clients gauge
aivd_ratelimit_memory_clients 2
`
		c := NewStatsCollector(limiter)
		assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
		assert.Equal(t, 3, testutil.CollectAndCount(c))
	})

	t.Run("unreachable redis", func(t *testing.T) {
		client, err := NewRedisClient(context.Background(), RedisOptions{Addr: "127.0.0.1:1"})
		require.Error(t, err)
		limiter := NewRateLimiter(client, Config{RequestsPerMinute: 10}, nil)
		defer limiter.Close()

		expected := `
# HELP aivd_ratelimit_redis_up Whether the rate limit Redis answers a ping
# TYPE aivd_ratelimit_redis_up gauge
aivd_ratelimit_redis_up 0
`
		c := NewStatsCollector(limiter)
		assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "aivd_ratelimit_redis_up"))
		assert.Equal(t, 4, testutil.CollectAndCount(c))
	})
}

func TestIPRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	limiter := NewRateLimiter(nil, Config{RequestsPerMinute: 2, Burst: 2}, metrics)
	defer limiter.Close()

	router := gin.New()
	router.Use(limiter.IPRateLimitMiddleware())
	router.GET("/api/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	var last *httptest.ResponseRecorder
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.RemoteAddr = "192.0.2.7:1234"
		router.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, apperrors.CategoryRateLimit, body.Category)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitBlocks.WithLabelValues("memory")))
}
