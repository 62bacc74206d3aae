package adapters

import (
	"context"
	"errors"
	"net/url"
	"strings"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// ErrVideoUnavailable marks a failure tied to one video (removed, private, unsupported)
// rather than to the backend
var ErrVideoUnavailable = errors.New("video unavailable")

// MetadataFetcher resolves a video URL to the metadata its platform publishes
type MetadataFetcher interface {
	Fetch(ctx context.Context, videoURL string) (types.VideoMetadata, error)
	Name() string
}

// ValidateURL trims raw and checks it is an absolute http(s) URL
func ValidateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperrors.NewInvalidInputError("No URL provided")
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", apperrors.NewInvalidInputError("Invalid video URL", trimmed)
	}

	return trimmed, nil
}

// hostKey returns the lowercased host of videoURL, or videoURL itself if it has none
func hostKey(videoURL string) string {
	u, err := url.Parse(videoURL)
	if err != nil || u.Hostname() == "" {
		return videoURL
	}
	return strings.ToLower(u.Hostname())
}

// dedupe keeps the first occurrence of each trimmed, non-empty value
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
