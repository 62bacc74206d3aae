package analysis

import (
	"strings"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// RemoteRules returns the metadata rule set in evaluation order
func RemoteRules() []Rule[types.VideoMetadata] {
	return []Rule[types.VideoMetadata]{
		{Name: "metadata_keywords", Eval: metadataKeywordRule},
		{Name: "uploader_name", Eval: uploaderRule},
		{Name: "tags", Eval: tagRule},
	}
}

func metadataKeywordRule(m types.VideoMetadata) (Contribution, bool) {
	title := strings.ToLower(m.Title)
	description := strings.ToLower(m.Description)

	var found []string
	for _, kw := range Keywords {
		if strings.Contains(title, kw) || strings.Contains(description, kw) {
			found = append(found, kw)
		}
	}
	if len(found) == 0 {
		return Contribution{}, false
	}
	return Contribution{
		Weight: 0.40,
		Label:  "AI keywords found in metadata: " + strings.Join(found, ", "),
	}, true
}

func uploaderRule(m types.VideoMetadata) (Contribution, bool) {
	uploader := strings.ToLower(m.Uploader)
	if !containsAny(uploader, Keywords) {
		return Contribution{}, false
	}
	return Contribution{Weight: 0.20, Label: "AI-related channel name: " + uploader}, true
}

func tagRule(m types.VideoMetadata) (Contribution, bool) {
	var matched []string
	for _, tag := range m.Tags {
		t := strings.ToLower(tag)
		if containsAny(t, Keywords) {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return Contribution{}, false
	}
	return Contribution{
		Weight: 0.20,
		Label:  "AI-related tags found: " + strings.Join(matched, ", "),
	}, true
}
