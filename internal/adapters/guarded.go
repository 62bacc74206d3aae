package adapters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/cache"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/resilience"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// GuardedFetcher wraps a backend with a timeout, a circuit breaker per host and an optional cache.
// Every failure comes back as a subject_unavailable AppError. Fetches are never retried.
type GuardedFetcher struct {
	inner         MetadataFetcher
	breakerConfig resilience.CircuitBreakerConfig
	cache         *cache.MetadataCache
	timeout       time.Duration
	metrics       *monitoring.Metrics
	logger        *monitoring.Logger

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker[types.VideoMetadata]
}

// GuardOptions configures a GuardedFetcher. Cache, Metrics and Logger may be nil.
type GuardOptions struct {
	Timeout time.Duration
	Breaker resilience.CircuitBreakerConfig
	Cache   *cache.MetadataCache
	Metrics *monitoring.Metrics
	Logger  *monitoring.Logger
}

// NewGuardedFetcher wraps inner
func NewGuardedFetcher(inner MetadataFetcher, opts GuardOptions) *GuardedFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = monitoring.NewLogger()
	}

	breakerConfig := opts.Breaker
	breakerConfig.Exclude = func(err error) bool {
		return errors.Is(err, ErrVideoUnavailable)
	}

	return &GuardedFetcher{
		inner:         inner,
		breakerConfig: breakerConfig,
		cache:         opts.Cache,
		timeout:       opts.Timeout,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		breakers:      make(map[string]*resilience.CircuitBreaker[types.VideoMetadata]),
	}
}

// Name reports the wrapped backend
func (g *GuardedFetcher) Name() string { return g.inner.Name() }

// BreakerState reports the state of the breaker guarding videoURL's host
func (g *GuardedFetcher) BreakerState(videoURL string) resilience.CircuitBreakerState {
	return g.breakerFor(videoURL).State()
}

func (g *GuardedFetcher) breakerFor(videoURL string) *resilience.CircuitBreaker[types.VideoMetadata] {
	host := hostKey(videoURL)

	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.breakers[host]; ok {
		return b
	}
	b := resilience.NewCircuitBreaker[types.VideoMetadata](
		"metadata-"+g.inner.Name()+"-"+host,
		g.breakerConfig,
		func(name string, from, to resilience.CircuitBreakerState) {
			g.logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if g.metrics != nil {
				g.metrics.SetBreakerState(name, int(to))
			}
		},
	)
	g.breakers[host] = b
	return b
}

// Fetch returns metadata for videoURL
func (g *GuardedFetcher) Fetch(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
	start := time.Now()

	if g.cache != nil {
		if meta, ok := g.cache.Get(videoURL); ok {
			g.recordCache(true)
			g.logger.ExternalAPILogger(g.inner.Name(), videoURL, time.Since(start), true, true)
			return meta, nil
		}
		g.recordCache(false)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	meta, err := g.breakerFor(videoURL).Execute(func() (types.VideoMetadata, error) {
		meta, err := g.inner.Fetch(fetchCtx, videoURL)
		if err != nil && errors.Is(ctx.Err(), context.Canceled) && !errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", context.Canceled, err)
		}
		return meta, err
	})
	if err != nil {
		appErr, outcome := g.classify(fetchCtx, videoURL, err)
		g.recordFetch(outcome)
		g.logger.ExternalAPILogger(g.inner.Name(), videoURL, time.Since(start), false, false)
		return types.VideoMetadata{}, appErr
	}

	meta.URL = videoURL
	g.recordFetch("ok")
	g.logger.ExternalAPILogger(g.inner.Name(), videoURL, time.Since(start), false, true)

	if g.cache != nil {
		g.cache.Set(videoURL, meta)
	}
	return meta, nil
}

func (g *GuardedFetcher) classify(ctx context.Context, videoURL string, err error) (*apperrors.AppError, string) {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.NewFetchError(videoURL, err), "breaker_open"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewFetchTimeoutError(videoURL, g.timeout, err), "timeout"
	default:
		return apperrors.NewFetchError(videoURL, err), "error"
	}
}

func (g *GuardedFetcher) recordFetch(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordFetch(g.inner.Name(), outcome)
	}
}

func (g *GuardedFetcher) recordCache(hit bool) {
	if g.metrics != nil {
		g.metrics.RecordCache(hit)
	}
}
