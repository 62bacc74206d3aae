//go:build linux

package adapters

import (
	"os"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// Linux exposes no portable birth time through stat; the inode change time is used instead.
func creationTime(fi os.FileInfo) types.Optional[time.Time] {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return types.None[time.Time]()
	}
	sec, nsec := st.Ctim.Unix()
	return types.Some(time.Unix(sec, nsec))
}
