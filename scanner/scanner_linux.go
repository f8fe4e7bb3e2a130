//go:build linux

package scanner

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// creationTime asks statx for the birth time. Filesystems that do not
// record it (and non-OS afero backends) yield the zero time.
func creationTime(fsys afero.Fs, path string, _ os.FileInfo) time.Time {
	if _, ok := fsys.(*afero.OsFs); !ok {
		return time.Time{}
	}

	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return time.Time{}
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
