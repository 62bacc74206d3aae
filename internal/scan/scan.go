package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/adapters"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/analysis"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/upload"
)

// Item is the outcome for one file. Exactly one of Result and Error is set.
type Item struct {
	Path   string                `json:"path" yaml:"path"`
	Result *analysis.ScoreResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary aggregates a directory scan. Items are sorted by path.
type Summary struct {
	Root    string `json:"root" yaml:"root"`
	Items   []Item `json:"items" yaml:"items"`
	Scanned int    `json:"scanned" yaml:"scanned"`
	Flagged int    `json:"flagged" yaml:"flagged"`
	Failed  int    `json:"failed" yaml:"failed"`
}

// Options tunes a scan
type Options struct {
	Workers    int      // defaults to NumCPU
	Extensions []string // defaults to the upload allow-list
	Logger     *slog.Logger
}

// Collect walks root and returns every file with an accepted extension, sorted
func Collect(root string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = upload.DefaultAllowedExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && allowed[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Run scores every video under root. Per-file failures are reported in the summary and do
// not stop the scan; only a walk failure or ctx cancellation returns an error.
func Run(ctx context.Context, analyzer *analysis.Analyzer, root string, opts Options) (Summary, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	paths, err := Collect(root, opts.Extensions)
	if err != nil {
		return Summary{}, err
	}

	items := make([]Item, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			items[i] = Item{Path: path}
			info, err := adapters.StatVideo(path)
			if err != nil {
				opts.Logger.Warn("Skipping unreadable video", "path", path, "error", err)
				items[i].Error = err.Error()
				return nil
			}

			result := analyzer.AnalyzeFile(info)
			items[i].Result = &result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Root: root, Items: items, Scanned: len(items)}
	for _, item := range items {
		switch {
		case item.Error != "":
			summary.Failed++
		case item.Result.Verdict:
			summary.Flagged++
		}
	}

	opts.Logger.Debug("Scan complete", "root", root, "scanned", summary.Scanned, "flagged", summary.Flagged, "failed", summary.Failed)
	return summary, nil
}
