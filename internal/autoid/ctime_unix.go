//go:build linux || darwin || freebsd || openbsd || netbsd

package autoid

import (
	"time"

	"golang.org/x/sys/unix"
)

// changeTime returns the inode change time of path. Claiming a counter
// renames it, which moves the change time but keeps the modification time.
func changeTime(path string) (time.Time, bool) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, false
	}
	return time.Unix(st.Ctim.Unix()), true
}
