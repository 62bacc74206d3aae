package adapters

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/ZanzyTHEbar/ai-video-detector/internal/errors"
	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

const bytesPerMB = 1048576

// StatVideo collects the filesystem signals for a video without reading its content
func StatVideo(path string) (types.FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return types.FileInfo{}, apperrors.NewInvalidInputError("No video file provided")
	}

	fi, err := os.Stat(path)
	if err != nil {
		return types.FileInfo{}, apperrors.NewSubjectNotFoundError(path, err)
	}
	if !fi.Mode().IsRegular() {
		return types.FileInfo{}, apperrors.NewSubjectNotFoundError(path, nil)
	}

	name := filepath.Base(path)
	return types.FileInfo{
		Path:      path,
		Name:      name,
		Ext:       strings.ToLower(filepath.Ext(name)),
		SizeBytes: fi.Size(),
		SizeMB:    SizeMB(fi.Size()),
		CreatedAt: creationTime(fi),
	}, nil
}

// SizeMB converts bytes to mebibytes rounded to two decimals
func SizeMB(bytes int64) float64 {
	return math.Round(float64(bytes)/bytesPerMB*100) / 100
}
