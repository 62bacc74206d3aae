package types

import "time"

// Optional holds a value that may not have been observable.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some wraps an available value
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an empty Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// FileInfo is what the local file adapter observes about a video on disk.
// Content is never read.
type FileInfo struct {
	Path      string              `json:"path"`
	Name      string              `json:"name"`
	Ext       string              `json:"ext"`
	SizeBytes int64               `json:"size_bytes"`
	SizeMB    float64             `json:"size_mb"`
	CreatedAt Optional[time.Time] `json:"-"`
}

// VideoMetadata is the textual metadata a video platform publishes for a URL
type VideoMetadata struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Uploader    string   `json:"uploader"`
	Tags        []string `json:"tags"`
}

// AnalyzeURLRequest represents the request structure for the analyze-url endpoint
type AnalyzeURLRequest struct {
	URL string `json:"url"`
}
