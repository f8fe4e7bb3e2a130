//go:build darwin

package scanner

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

func creationTime(fsys afero.Fs, path string, _ os.FileInfo) time.Time {
	if _, ok := fsys.(*afero.OsFs); !ok {
		return time.Time{}
	}

	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return time.Time{}
	}
	// macOS keeps the creation time in Birthtimespec
	return time.Unix(stat.Birthtimespec.Unix())
}
