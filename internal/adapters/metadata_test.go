package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/cache"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/config"
	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/monitoring"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/resilience"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

const videoPage = `<!DOCTYPE html>
<html><head>
<title>fallback title - VideoSite</title>
<meta property="og:title" content="Amazing   Stable Diffusion Video">
<meta property="og:description" content="Rendered overnight">
<meta name="keywords" content="art, Midjourney, art">
<meta property="og:video:tag" content="timelapse">
<meta property="og:video:tag" content="Veo">
</head><body>
<span itemprop="author"><link itemprop="name" content="Synthetic Dreams"></span>
</body></html>`

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "https", input: "https://www.youtube.com/watch?v=abc", want: "https://www.youtube.com/watch?v=abc"},
		{name: "trimmed", input: "  http://example.com/v  ", want: "http://example.com/v"},
		{name: "empty", input: "", wantErr: true},
		{name: "blank", input: "   ", wantErr: true},
		{name: "no scheme", input: "example.com/video", wantErr: true},
		{name: "ftp", input: "ftp://example.com/video", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateURL(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePage(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(videoPage))
	require.NoError(t, err)

	meta := ParsePage(doc)

	assert.Equal(t, "Amazing Stable Diffusion Video", meta.Title)
	assert.Equal(t, "Rendered overnight", meta.Description)
	assert.Equal(t, "Synthetic Dreams", meta.Uploader)
	assert.Equal(t, []string{"timelapse", "Veo", "art", "Midjourney"}, meta.Tags)
}

func TestParsePage_Fallbacks(t *testing.T) {
	html := `<html><head><title> Plain  page </title>
<meta name="description" content="desc">
<meta name="author" content="someone"></head></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	meta := ParsePage(doc)

	assert.Equal(t, "Plain page", meta.Title)
	assert.Equal(t, "desc", meta.Description)
	assert.Equal(t, "someone", meta.Uploader)
	assert.Empty(t, meta.Tags)
}

func TestPageFetcher_Fetch(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, videoPage)
	}))
	defer server.Close()

	fetcher := NewPageFetcher(server.Client(), "aivd-test/1.0", 0)
	assert.Equal(t, "page", fetcher.Name())

	meta, err := fetcher.Fetch(context.Background(), server.URL+"/watch")
	require.NoError(t, err)
	assert.Equal(t, "aivd-test/1.0", gotUA)
	assert.Equal(t, server.URL+"/watch", meta.URL)
	assert.Equal(t, "Amazing Stable Diffusion Video", meta.Title)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.ErrorIs(t, err, ErrVideoUnavailable)
}

func TestYTDLPFetcher_Fetch(t *testing.T) {
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(`{"title":"Made with Veo","description":"d","uploader":"","channel":"AI Studio","tags":["a","a","b"],"duration":12}`), nil
	}

	fetcher := NewYTDLPFetcher("", runner)
	assert.Equal(t, "ytdlp", fetcher.Name())

	meta, err := fetcher.Fetch(context.Background(), "https://youtu.be/x")
	require.NoError(t, err)

	assert.Equal(t, []string{"yt-dlp", "--dump-single-json", "--skip-download", "--no-warnings", "https://youtu.be/x"}, gotArgs)
	assert.Equal(t, "Made with Veo", meta.Title)
	assert.Equal(t, "AI Studio", meta.Uploader)
	assert.Equal(t, []string{"a", "b"}, meta.Tags)
}

func TestYTDLPFetcher_Errors(t *testing.T) {
	failing := NewYTDLPFetcher("yt-dlp", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("yt-dlp exited with code 1: ERROR: Unsupported URL")
	})
	_, err := failing.Fetch(context.Background(), "https://example.com")
	assert.ErrorContains(t, err, "Unsupported URL")
	assert.ErrorIs(t, err, ErrVideoUnavailable)

	broken := NewYTDLPFetcher("yt-dlp", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("yt-dlp exited with code 1: ERROR: unable to download webpage: connection reset")
	})
	_, err = broken.Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrVideoUnavailable)

	garbage := NewYTDLPFetcher("yt-dlp", func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("not json"), nil
	})
	_, err = garbage.Fetch(context.Background(), "https://example.com")
	assert.ErrorContains(t, err, "decode")
}

type stubFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, videoURL string) (types.VideoMetadata, error)
}

func (s *stubFetcher) Name() string { return "stub" }

func (s *stubFetcher) Fetch(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
	s.calls.Add(1)
	return s.fn(ctx, videoURL)
}

func TestGuardedFetcher_CachesResults(t *testing.T) {
	stub := &stubFetcher{fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
		return types.VideoMetadata{Title: "t"}, nil
	}}
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	g := NewGuardedFetcher(stub, GuardOptions{
		Timeout: time.Second,
		Cache:   cache.NewMetadataCache(time.Minute),
		Metrics: metrics,
	})

	for i := 0; i < 3; i++ {
		meta, err := g.Fetch(context.Background(), "https://example.com/v")
		require.NoError(t, err)
		assert.Equal(t, "t", meta.Title)
		assert.Equal(t, "https://example.com/v", meta.URL)
	}

	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MetadataCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MetadataFetches.WithLabelValues("stub", "ok")))
}

func TestGuardedFetcher_Timeout(t *testing.T) {
	stub := &stubFetcher{fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
		<-ctx.Done()
		return types.VideoMetadata{}, ctx.Err()
	}}
	g := NewGuardedFetcher(stub, GuardOptions{Timeout: 20 * time.Millisecond})

	_, err := g.Fetch(context.Background(), "https://example.com/slow")
	require.Error(t, err)

	appErr := apperrors.ToAppError(err)
	assert.Equal(t, apperrors.CategorySubjectUnavailable, appErr.Category)
	assert.Equal(t, http.StatusGatewayTimeout, appErr.HTTPStatus)
}

func TestGuardedFetcher_FailuresOpenBreaker(t *testing.T) {
	stub := &stubFetcher{fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
		return types.VideoMetadata{}, fmt.Errorf("connection refused")
	}}
	g := NewGuardedFetcher(stub, GuardOptions{
		Timeout: time.Second,
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour},
	})

	for i := 0; i < 4; i++ {
		_, err := g.Fetch(context.Background(), "https://example.com/v")
		require.Error(t, err)
		assert.True(t, apperrors.IsSubjectUnavailable(err))
		assert.Equal(t, http.StatusBadGateway, apperrors.ToAppError(err).HTTPStatus)
	}

	assert.Equal(t, int32(2), stub.calls.Load())
	assert.Equal(t, resilience.StateOpen, g.BreakerState("https://example.com/v"))
}

func TestGuardedFetcher_BreakersArePerHost(t *testing.T) {
	stub := &stubFetcher{fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
		if strings.Contains(videoURL, "down.example.com") {
			return types.VideoMetadata{}, fmt.Errorf("connection refused")
		}
		return types.VideoMetadata{Title: "fine"}, nil
	}}
	g := NewGuardedFetcher(stub, GuardOptions{
		Timeout: time.Second,
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour},
	})

	for i := 0; i < 3; i++ {
		_, err := g.Fetch(context.Background(), "https://down.example.com/v")
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateOpen, g.BreakerState("https://DOWN.example.com/other"))

	meta, err := g.Fetch(context.Background(), "https://up.example.org/v")
	require.NoError(t, err)
	assert.Equal(t, "fine", meta.Title)
	assert.Equal(t, resilience.StateClosed, g.BreakerState("https://up.example.org/v"))
}

func TestGuardedFetcher_FailuresOfOneRequestDoNotTrip(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		fn   func(ctx context.Context, videoURL string) (types.VideoMetadata, error)
	}{
		{
			name: "caller cancelled",
			ctx:  cancelled,
			fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
				return types.VideoMetadata{}, ctx.Err()
			},
		},
		{
			name: "caller cancelled with backend error",
			ctx:  cancelled,
			fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
				return types.VideoMetadata{}, fmt.Errorf("yt-dlp exited with code -1")
			},
		},
		{
			name: "video unavailable",
			ctx:  context.Background(),
			fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
				return types.VideoMetadata{}, fmt.Errorf("%w: page returned status 404", ErrVideoUnavailable)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := true
			stub := &stubFetcher{fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
				if failing {
					return tt.fn(ctx, videoURL)
				}
				return types.VideoMetadata{Title: "healthy"}, nil
			}}
			g := NewGuardedFetcher(stub, GuardOptions{
				Timeout: time.Second,
				Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour},
			})

			for i := 0; i < 5; i++ {
				_, err := g.Fetch(tt.ctx, "https://example.com/gone")
				require.Error(t, err)
				assert.True(t, apperrors.IsSubjectUnavailable(err))
			}
			assert.Equal(t, int32(5), stub.calls.Load())
			assert.Equal(t, resilience.StateClosed, g.BreakerState("https://example.com/gone"))

			failing = false
			for _, u := range []string{"https://example.com/healthy", "https://other.example.org/healthy"} {
				meta, err := g.Fetch(context.Background(), u)
				require.NoError(t, err, u)
				assert.Equal(t, "healthy", meta.Title)
			}
		})
	}
}

func TestGuardedFetcher_FailureIsNotCached(t *testing.T) {
	fail := true
	stub := &stubFetcher{fn: func(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
		if fail {
			return types.VideoMetadata{}, fmt.Errorf("boom")
		}
		return types.VideoMetadata{Title: "ok"}, nil
	}}
	g := NewGuardedFetcher(stub, GuardOptions{Cache: cache.NewMetadataCache(time.Minute)})

	_, err := g.Fetch(context.Background(), "https://example.com/v")
	require.Error(t, err)

	fail = false
	meta, err := g.Fetch(context.Background(), "https://example.com/v")
	require.NoError(t, err)
	assert.Equal(t, "ok", meta.Title)
}

func TestNewMetadataFetcherFromConfig(t *testing.T) {
	cc := config.Default().Cache

	tests := []struct {
		name     string
		backend  string
		wantName string
		wantErr  bool
	}{
		{name: "page backend", backend: "page", wantName: "page"},
		{name: "ytdlp backend", backend: "ytdlp", wantName: "ytdlp"},
		{name: "unknown backend", backend: "ftp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := config.Default().Fetch
			fc.Backend = tt.backend

			f, err := NewMetadataFetcherFromConfig(fc, cc, nil, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, f.Name())
			assert.Equal(t, resilience.StateClosed, f.BreakerState("https://example.com/v"))
		})
	}
}
