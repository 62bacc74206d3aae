package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// LocalSignals is the signal bundle for a file on disk
type LocalSignals struct {
	Name      string // basename
	SizeMB    float64
	Ext       string
	CreatedAt types.Optional[time.Time]
	Now       time.Time
}

// LocalSignalsFromFile derives the signal bundle from adapter output
func LocalSignalsFromFile(info types.FileInfo, now time.Time) LocalSignals {
	return LocalSignals{
		Name:      info.Name,
		SizeMB:    info.SizeMB,
		Ext:       info.Ext,
		CreatedAt: info.CreatedAt,
		Now:       now,
	}
}

var uncommonExtensions = map[string]bool{
	".webm": true,
	".flv":  true,
	".m4v":  true,
}

// LocalRules returns the local file rule set in evaluation order
func LocalRules() []Rule[LocalSignals] {
	return []Rule[LocalSignals]{
		{Name: "size_bracket", Eval: sizeBracketRule},
		{Name: "filename_keywords", Eval: filenameKeywordRule},
		{Name: "uncommon_extension", Eval: uncommonExtensionRule},
		{Name: "recency", Eval: recencyRule},
	}
}

func sizeBracketRule(s LocalSignals) (Contribution, bool) {
	switch {
	case s.SizeMB < 1:
		return Contribution{Weight: 0.20, Label: "Very small file size"}, true
	case s.SizeMB < 5:
		return Contribution{Weight: 0.15, Label: "Small file size"}, true
	}
	return Contribution{}, false
}

// filenameKeywordRule weighs every distinct keyword in the name. No per-rule cap.
func filenameKeywordRule(s LocalSignals) (Contribution, bool) {
	found := matchKeywords(strings.ToLower(s.Name), Keywords)
	if len(found) == 0 {
		return Contribution{}, false
	}
	weight := float64(len(found)) * 0.15
	return Contribution{
		Weight: weight,
		Label:  fmt.Sprintf("AI keywords in filename: %d match(es) totalling %.2f", len(found), weight),
	}, true
}

func uncommonExtensionRule(s LocalSignals) (Contribution, bool) {
	ext := strings.ToLower(s.Ext)
	if !uncommonExtensions[ext] {
		return Contribution{}, false
	}
	return Contribution{Weight: 0.15, Label: "Uncommon format " + ext}, true
}

func recencyRule(s LocalSignals) (Contribution, bool) {
	created, ok := s.CreatedAt.Get()
	if !ok {
		return Contribution{}, false
	}
	age := s.Now.Sub(created)
	switch {
	case age < time.Hour:
		return Contribution{Weight: 0.20, Label: "Very recently created"}, true
	case age < 24*time.Hour:
		return Contribution{Weight: 0.10, Label: "Recently created"}, true
	}
	return Contribution{}, false
}
