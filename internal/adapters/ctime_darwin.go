//go:build darwin

package adapters

import (
	"os"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

func creationTime(fi os.FileInfo) types.Optional[time.Time] {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return types.None[time.Time]()
	}
	sec, nsec := st.Birthtimespec.Unix()
	return types.Some(time.Unix(sec, nsec))
}
