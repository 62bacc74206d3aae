//go:build !linux && !darwin && !windows

package adapters

import (
	"os"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// Creation time is not observable here, so the recency rule never fires.
func creationTime(os.FileInfo) types.Optional[time.Time] {
	return types.None[time.Time]()
}
