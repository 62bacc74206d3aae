//go:build windows

package adapters

import (
	"os"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

func creationTime(fi os.FileInfo) types.Optional[time.Time] {
	data, ok := fi.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return types.None[time.Time]()
	}
	return types.Some(time.Unix(0, data.CreationTime.Nanoseconds()))
}
