package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/analysis"
)

// Format is an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks YAML for .yaml/.yml files and JSON otherwise
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat validates a user-supplied format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or yaml)", s)
	}
}

// Encode serializes a result in the given format
func Encode(result analysis.ScoreResult, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yaml.Marshal(result)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Decode parses a result in the given format
func Decode(data []byte, format Format) (analysis.ScoreResult, error) {
	var result analysis.ScoreResult
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &result)
	} else {
		err = json.Unmarshal(data, &result)
	}
	return result, err
}

// Save writes result to path, choosing the encoding from the extension
func Save(path string, result analysis.ScoreResult) error {
	return SaveAs(path, result, FormatForPath(path))
}

// SaveAs writes result to path in an explicit format
func SaveAs(path string, result analysis.ScoreResult, format Format) error {
	data, err := Encode(result, format)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Load reads a result previously written by Save
func Load(path string) (analysis.ScoreResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.ScoreResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	result, err := Decode(data, FormatForPath(path))
	if err != nil {
		return analysis.ScoreResult{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return result, nil
}

// RenderText writes the human-readable report printed by the CLI
func RenderText(w io.Writer, result analysis.ScoreResult, threshold float64) error {
	rule := strings.Repeat("=", 60)
	status := "AUTHENTIC"
	if result.Verdict {
		status = "AI GENERATED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nAnalyzing: %s\n%s\n", result.SubjectName, rule)
	fmt.Fprintf(&b, "\nDETECTION RESULTS:\n")
	fmt.Fprintf(&b, "   File: %s\n", result.SubjectName)
	if result.SizeMB != nil {
		fmt.Fprintf(&b, "   Size: %s MB\n", strconv.FormatFloat(*result.SizeMB, 'f', -1, 64))
	}
	fmt.Fprintf(&b, "   AI Score: %.4f (threshold: %.2f)\n", result.Confidence, threshold)
	fmt.Fprintf(&b, "   Status: %s\n", status)

	if len(result.Factors) > 0 {
		fmt.Fprintf(&b, "\nDetection Factors:\n")
		for _, factor := range result.Factors {
			fmt.Fprintf(&b, "   - %s\n", factor)
		}
	} else {
		fmt.Fprintf(&b, "\n   No suspicious factors detected.\n")
	}
	fmt.Fprintf(&b, "%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}
