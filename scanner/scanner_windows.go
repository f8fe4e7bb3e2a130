//go:build windows

package scanner

import (
	"os"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

func creationTime(_ afero.Fs, _ string, info os.FileInfo) time.Time {
	if info == nil {
		return time.Time{}
	}
	if winStat, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, winStat.CreationTime.Nanoseconds())
	}
	return time.Time{}
}
