package adapters

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestStatVideo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "AI_Clip.WEBM", 524288)

	info, err := StatVideo(path)
	require.NoError(t, err)

	assert.Equal(t, path, info.Path)
	assert.Equal(t, "AI_Clip.WEBM", info.Name)
	assert.Equal(t, ".webm", info.Ext)
	assert.Equal(t, int64(524288), info.SizeBytes)
	assert.Equal(t, 0.5, info.SizeMB)

	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		created, ok := info.CreatedAt.Get()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now(), created, time.Minute)
	}
}

func TestStatVideo_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name        string
		path        string
		invalid     bool
		unavailable bool
	}{
		{name: "empty path", path: "  ", invalid: true},
		{name: "missing file", path: filepath.Join(dir, "nope.mp4"), unavailable: true},
		{name: "directory", path: dir, unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StatVideo(tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.invalid, apperrors.IsInvalidInput(err))
			assert.Equal(t, tt.unavailable, apperrors.IsSubjectUnavailable(err))
		})
	}
}

func TestSizeMB(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected float64
	}{
		{0, 0},
		{1048576, 1},
		{52428800, 50},
		{1572864, 1.5},
		{1234567, 1.18},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SizeMB(tt.bytes), "bytes=%d", tt.bytes)
	}
}
