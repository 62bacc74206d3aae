package adapters

import (
	"fmt"
	"net/http"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/cache"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/config"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
)

// NewMetadataFetcherFromConfig builds the configured backend wrapped in its guard.
// metrics and logger may be nil.
func NewMetadataFetcherFromConfig(fc config.FetchConfig, cc config.CacheConfig, metrics *monitoring.Metrics, logger *monitoring.Logger) (*GuardedFetcher, error) {
	var inner MetadataFetcher
	switch fc.Backend {
	case "page":
		inner = NewPageFetcher(&http.Client{Timeout: fc.Timeout}, fc.UserAgent, fc.MaxBodyBytes)
	case "ytdlp":
		inner = NewYTDLPFetcher(fc.YTDLPPath, ExecRunner)
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", fc.Backend)
	}

	var metaCache *cache.MetadataCache
	if cc.Enabled {
		metaCache = cache.NewMetadataCache(cc.TTL)
	}

	return NewGuardedFetcher(inner, GuardOptions{
		Timeout: fc.Timeout,
		Breaker: fc.Breaker.BreakerSettings(),
		Cache:   metaCache,
		Metrics: metrics,
		Logger:  logger,
	}), nil
}
