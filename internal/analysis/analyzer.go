package analysis

import (
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// Analyzer pairs the local and remote scorers with the clock used for recency signals
type Analyzer struct {
	local  *Scorer[LocalSignals]
	remote *Scorer[types.VideoMetadata]
	now    func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithClock overrides the wall clock used for the recency rule
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger routes per-rule debug tracing to logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.local.WithLogger(logger)
		a.remote.WithLogger(logger)
	}
}

// NewAnalyzer creates an analyzer with both rule sets at the default threshold
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		local:  NewScorer("local", DefaultThreshold, LocalRules()...),
		remote: NewScorer("remote", DefaultThreshold, RemoteRules()...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeFile scores a file described by the local adapter
func (a *Analyzer) AnalyzeFile(info types.FileInfo) ScoreResult {
	size := info.SizeMB
	return a.local.Score(info.Name, &size, LocalSignalsFromFile(info, a.now()))
}

// AnalyzeMetadata scores platform metadata for a URL. The subject is the title,
// falling back to the URL when the platform published none.
func (a *Analyzer) AnalyzeMetadata(meta types.VideoMetadata) ScoreResult {
	subject := meta.Title
	if subject == "" {
		subject = meta.URL
	}
	return a.remote.Score(subject, nil, meta)
}

// Threshold returns the verdict threshold shared by both rule sets
func (a *Analyzer) Threshold() float64 {
	return a.local.Threshold()
}
