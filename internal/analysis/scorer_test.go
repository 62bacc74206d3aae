package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSignals struct {
	values []float64
}

func indexRule(name string, i int) Rule[testSignals] {
	return Rule[testSignals]{
		Name: name,
		Eval: func(s testSignals) (Contribution, bool) {
			if i >= len(s.values) || s.values[i] <= 0 {
				return Contribution{}, false
			}
			return Contribution{Weight: s.values[i], Label: name}, true
		},
	}
}

func newTestScorer() *Scorer[testSignals] {
	return NewScorer("test", DefaultThreshold,
		indexRule("first", 0),
		indexRule("second", 1),
		indexRule("third", 2),
	)
}

func TestFormatFactor(t *testing.T) {
	tests := []struct {
		name     string
		input    Contribution
		expected string
	}{
		{
			name:     "two decimals with sign",
			input:    Contribution{Weight: 0.15, Label: "Small file size"},
			expected: "Small file size (+0.15)",
		},
		{
			name:     "rounds to two decimals",
			input:    Contribution{Weight: 0.4500001, Label: "keywords"},
			expected: "keywords (+0.45)",
		},
		{
			name:     "weights above one",
			input:    Contribution{Weight: 1.2, Label: "many keywords"},
			expected: "many keywords (+1.20)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatFactor(tt.input))
		})
	}
}

func TestScorer_Score(t *testing.T) {
	tests := []struct {
		name            string
		values          []float64
		expectedRaw     float64
		expectedConf    float64
		expectedVerdict bool
		expectedFactors []string
	}{
		{
			name:            "nothing fires",
			values:          nil,
			expectedRaw:     0,
			expectedConf:    0,
			expectedVerdict: false,
			expectedFactors: []string{},
		},
		{
			name:            "factors keep declared order",
			values:          []float64{0.1, 0, 0.2},
			expectedRaw:     0.3,
			expectedConf:    0.3,
			expectedVerdict: false,
			expectedFactors: []string{"first (+0.10)", "third (+0.20)"},
		},
		{
			name:            "exactly at threshold is not flagged",
			values:          []float64{0.25, 0.25},
			expectedRaw:     0.5,
			expectedConf:    0.5,
			expectedVerdict: false,
			expectedFactors: []string{"first (+0.25)", "second (+0.25)"},
		},
		{
			name:            "above threshold is flagged",
			values:          []float64{0.25, 0.25, 0.01},
			expectedRaw:     0.51,
			expectedConf:    0.51,
			expectedVerdict: true,
			expectedFactors: []string{"first (+0.25)", "second (+0.25)", "third (+0.01)"},
		},
		{
			name:            "confidence caps at one",
			values:          []float64{0.9, 0.9, 0.9},
			expectedRaw:     2.7,
			expectedConf:    1.0,
			expectedVerdict: true,
			expectedFactors: []string{"first (+0.90)", "second (+0.90)", "third (+0.90)"},
		},
	}

	scorer := newTestScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scorer.Score("subject", nil, testSignals{values: tt.values})

			assert.Equal(t, "subject", res.SubjectName)
			assert.Nil(t, res.SizeMB)
			assert.InDelta(t, tt.expectedRaw, res.RawScore, 1e-9)
			assert.Equal(t, tt.expectedConf, res.Confidence)
			assert.Equal(t, tt.expectedVerdict, res.Verdict)
			assert.Equal(t, tt.expectedFactors, res.Factors)
		})
	}
}

func TestScorer_Invariants(t *testing.T) {
	scorer := newTestScorer()
	inputs := [][]float64{
		nil,
		{0.05},
		{0.3, 0.3},
		{0, 0, 0.7},
		{1, 1, 1},
		{0.33333, 0.33333, 0.33333},
	}

	for _, values := range inputs {
		res := scorer.Score("s", nil, testSignals{values: values})

		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
		assert.LessOrEqual(t, len(res.Factors), scorer.RuleCount())
		assert.Equal(t, res.Confidence > scorer.Threshold(), res.Verdict)
	}
}

func TestScorer_RoundsConfidence(t *testing.T) {
	scorer := newTestScorer()
	res := scorer.Score("s", nil, testSignals{values: []float64{0.123456}})

	require.Len(t, res.Factors, 1)
	assert.Equal(t, 0.1235, res.Confidence)
	assert.InDelta(t, 0.123456, res.RawScore, 1e-12)
}

func TestScorer_Idempotent(t *testing.T) {
	scorer := newTestScorer()
	signals := testSignals{values: []float64{0.2, 0.15, 0.3}}

	first := scorer.Score("s", nil, signals)
	second := scorer.Score("s", nil, signals)

	assert.Equal(t, first, second)
}
