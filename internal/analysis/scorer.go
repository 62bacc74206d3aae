package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// DefaultThreshold is the confidence a subject must exceed to be flagged
const DefaultThreshold = 0.5

// Scorer runs an ordered rule list against a signal bundle and accumulates the result
type Scorer[S any] struct {
	name      string
	rules     []Rule[S]
	threshold float64
	logger    *slog.Logger
}

// NewScorer creates a scorer. Rules are evaluated in the order given.
func NewScorer[S any](name string, threshold float64, rules ...Rule[S]) *Scorer[S] {
	return &Scorer[S]{
		name:      name,
		rules:     rules,
		threshold: threshold,
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger used for per-rule debug output
func (s *Scorer[S]) WithLogger(logger *slog.Logger) *Scorer[S] {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Threshold returns the verdict threshold
func (s *Scorer[S]) Threshold() float64 { return s.threshold }

// RuleCount returns the number of registered rules
func (s *Scorer[S]) RuleCount() int { return len(s.rules) }

// Score evaluates every rule once, in order. It never fails.
func (s *Scorer[S]) Score(subject string, sizeMB *float64, signals S) ScoreResult {
	total := 0.0
	factors := make([]string, 0, len(s.rules))

	for _, rule := range s.rules {
		c, fired := rule.Eval(signals)
		if fired {
			total += c.Weight
			factors = append(factors, FormatFactor(c))
		}
		s.logger.Log(context.Background(), slog.LevelDebug, "Rule evaluated",
			"scorer", s.name,
			"rule", rule.Name,
			"fired", fired,
			"weight", c.Weight,
			"running_total", total,
		)
	}

	confidence := roundTo(math.Min(total, 1.0), 4)
	res := ScoreResult{
		SubjectName: subject,
		SizeMB:      sizeMB,
		RawScore:    total,
		Confidence:  confidence,
		Verdict:     confidence > s.threshold,
		Factors:     factors,
	}

	s.logger.Debug("Score computed",
		"scorer", s.name,
		"subject", subject,
		"confidence", res.Confidence,
		"threshold", s.threshold,
		"verdict", res.Verdict,
	)

	return res
}

// FormatFactor renders a fired rule for the factor trace, e.g. "Small file size (+0.15)"
func FormatFactor(c Contribution) string {
	return fmt.Sprintf("%s (%+.2f)", c.Label, c.Weight)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
