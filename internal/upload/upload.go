package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
)

// DefaultAllowedExtensions are the video containers accepted for upload, without the dot
var DefaultAllowedExtensions = []string{"mp4", "mov", "avi", "mkv", "webm", "flv", "m4v"}

// DefaultMaxBytes is the largest accepted upload (500 MiB)
const DefaultMaxBytes int64 = 500 << 20

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Store saves uploaded videos under a directory with collision-free names
type Store struct {
	dir      string
	allowed  map[string]bool
	maxBytes int64
}

// NewStore creates a store rooted at dir. Extensions may be given with or without the dot.
func NewStore(dir string, allowedExtensions []string, maxBytes int64) *Store {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultAllowedExtensions
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	return &Store{dir: dir, allowed: allowed, maxBytes: maxBytes}
}

// Dir returns the upload directory
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the upload size limit
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Allowed reports whether filename carries an accepted extension
func (s *Store) Allowed(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return false
	}
	return s.allowed[strings.ToLower(filename[i+1:])]
}

// AllowedExtensions returns the accepted extensions, sorted, without the dot
func (s *Store) AllowedExtensions() []string {
	exts := make([]string, 0, len(s.allowed))
	for ext := range s.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Validate checks an uploaded filename before anything is written
func (s *Store) Validate(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewInvalidInputError("No video selected")
	}
	if !s.Allowed(filename) {
		return apperrors.NewInvalidInputError("Invalid file type. Allowed: "+strings.Join(s.AllowedExtensions(), ", "), filename)
	}
	return nil
}

// SanitizeFilename reduces a client-supplied name to a safe basename.
// Directory components are dropped and unsafe characters become underscores.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "video"
	}
	return name
}

// Save validates filename and streams r to a uniquely named file, returning its path and size
func (s *Store) Save(r io.Reader, filename string) (string, int64, error) {
	if err := s.Validate(filename); err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, apperrors.NewInternalError(filename, "upload_dir", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+"_"+SanitizeFilename(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", 0, apperrors.NewInternalError(filename, "upload_create", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.Remove(path)
		return "", 0, apperrors.NewPayloadTooLargeError(s.maxBytes)
	}
	if err != nil {
		s.Remove(path)
		return "", 0, apperrors.NewInternalError(filename, "upload_write", fmt.Errorf("write %s: %w", path, err))
	}
	if written > s.maxBytes {
		s.Remove(path)
		return "", 0, apperrors.NewPayloadTooLargeError(s.maxBytes)
	}

	return path, written, nil
}

// Remove deletes a stored upload; missing files are ignored
func (s *Store) Remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove upload", "path", path, "error", err)
	}
}
