package analysis

// Contribution is what a rule adds to the score when it fires
type Contribution struct {
	Weight float64
	Label  string
}

// Rule inspects a signal bundle of type S. It returns ok=false when it does not fire,
// including when the signal it needs was not observable.
type Rule[S any] struct {
	Name string
	Eval func(S) (Contribution, bool)
}

// ScoreResult is the outcome of one analysis. It is built once and never mutated.
type ScoreResult struct {
	SubjectName string   `json:"subject_name" yaml:"subject_name"`
	SizeMB      *float64 `json:"size_mb,omitempty" yaml:"size_mb,omitempty"`
	RawScore    float64  `json:"raw_score" yaml:"raw_score"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Verdict     bool     `json:"verdict" yaml:"verdict"`
	Factors     []string `json:"factors" yaml:"factors"`
}
