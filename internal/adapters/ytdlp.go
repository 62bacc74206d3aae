package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// CommandRunner runs an external program and returns its stdout
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs the command with os/exec, folding stderr into the error
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}

// YTDLPFetcher asks yt-dlp for a video's info JSON without downloading it
type YTDLPFetcher struct {
	path string
	run  CommandRunner
}

type ytdlpInfo struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Uploader    string   `json:"uploader"`
	Channel     string   `json:"channel"`
	Tags        []string `json:"tags"`
}

// NewYTDLPFetcher creates a fetcher for the yt-dlp binary at path. A nil runner uses ExecRunner.
func NewYTDLPFetcher(path string, run CommandRunner) *YTDLPFetcher {
	if path == "" {
		path = "yt-dlp"
	}
	if run == nil {
		run = ExecRunner
	}
	return &YTDLPFetcher{path: path, run: run}
}

// Name identifies the backend in logs and metrics
func (y *YTDLPFetcher) Name() string { return "ytdlp" }

// Fetch runs yt-dlp and decodes the fields the remote rules need
func (y *YTDLPFetcher) Fetch(ctx context.Context, videoURL string) (types.VideoMetadata, error) {
	out, err := y.run(ctx, y.path, "--dump-single-json", "--skip-download", "--no-warnings", videoURL)
	if err != nil {
		if isVideoError(err) {
			return types.VideoMetadata{}, fmt.Errorf("yt-dlp failed: %w: %w", ErrVideoUnavailable, err)
		}
		return types.VideoMetadata{}, fmt.Errorf("yt-dlp failed: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return types.VideoMetadata{}, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	uploader := info.Uploader
	if uploader == "" {
		uploader = info.Channel
	}

	return types.VideoMetadata{
		URL:         videoURL,
		Title:       info.Title,
		Description: info.Description,
		Uploader:    uploader,
		Tags:        dedupe(info.Tags),
	}, nil
}

// yt-dlp messages for a video that cannot be resolved, as opposed to a broken extractor or network
var videoErrorMarkers = []string{
	"video unavailable",
	"private video",
	"unsupported url",
	"has been removed",
	"is not available",
	"does not exist",
	"http error 404",
	"http error 410",
}

func isVideoError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range videoErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
