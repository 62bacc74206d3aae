package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector exports limiter and Redis pool state on every scrape
type StatsCollector struct {
	limiter *RateLimiter

	backend        *prometheus.Desc
	trackedClients *prometheus.Desc
	redisUp        *prometheus.Desc
	poolHits       *prometheus.Desc
	poolMisses     *prometheus.Desc
	poolTimeouts   *prometheus.Desc
	poolConns      *prometheus.Desc
	poolIdleConns  *prometheus.Desc
}

// NewStatsCollector builds a collector for rl; register it with the /metrics registry
func NewStatsCollector(rl *RateLimiter) *StatsCollector {
	return &StatsCollector{
		limiter: rl,
		backend: prometheus.NewDesc("aivd_ratelimit_backend",
			"Rate limit backend in use (1 for the active one)", []string{"backend"}, nil),
		trackedClients: prometheus.NewDesc("aivd_ratelimit_memory_clients",
			"Client IPs with an in-memory token bucket", nil, nil),
		redisUp: prometheus.NewDesc("aivd_ratelimit_redis_up",
			"Whether the rate limit Redis answers a ping", nil, nil),
		poolHits: prometheus.NewDesc("aivd_ratelimit_redis_pool_hits_total",
			"Redis pool connection reuses", nil, nil),
		poolMisses: prometheus.NewDesc("aivd_ratelimit_redis_pool_misses_total",
			"Redis pool connections that had to be dialled", nil, nil),
		poolTimeouts: prometheus.NewDesc("aivd_ratelimit_redis_pool_timeouts_total",
			"Redis pool waits that timed out", nil, nil),
		poolConns: prometheus.NewDesc("aivd_ratelimit_redis_pool_connections",
			"Open Redis connections", nil, nil),
		poolIdleConns: prometheus.NewDesc("aivd_ratelimit_redis_pool_idle_connections",
			"Idle Redis connections", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.backend
	ch <- c.trackedClients
	ch <- c.redisUp
	ch <- c.poolHits
	ch <- c.poolMisses
	ch <- c.poolTimeouts
	ch <- c.poolConns
	ch <- c.poolIdleConns
}

// Collect implements prometheus.Collector
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	redisClient := c.limiter.redisClient

	active := c.limiter.Backend()
	for _, name := range []string{backendRedis, backendMemory} {
		v := 0.0
		if name == active {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.backend, prometheus.GaugeValue, v, name)
	}
	ch <- prometheus.MustNewConstMetric(c.trackedClients, prometheus.GaugeValue, float64(c.limiter.trackedClients()))

	if redisClient.Addr() == "" {
		return
	}

	up := 0.0
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if redisClient.Ping(ctx) == nil {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.redisUp, prometheus.GaugeValue, up)

	stats, ok := redisClient.PoolStats()
	if !ok {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.poolHits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.poolMisses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.poolTimeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.poolConns, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.poolIdleConns, prometheus.GaugeValue, float64(stats.IdleConns))
}
