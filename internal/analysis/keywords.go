package analysis

import "strings"

// Keywords are the AI-related substrings both rule sets look for
var Keywords = []string{"ai", "synthetic", "generated", "deepfake", "stable", "midjourney", "dali", "veo"}

// matchKeywords returns the distinct keywords that occur in text, in keyword order.
// text must already be lowercased.
func matchKeywords(text string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
