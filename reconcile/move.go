package reconcile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const tempSuffix = ".fsrecon-tmp"

// moveFile renames src to dst, replacing dst if present. When the rename
// crosses devices it copies into a temporary file beside dst, renames that
// into place and then removes src, so dst is never half written.
func moveFile(fsys afero.Fs, src, dst string) error {
	err := fsys.Rename(src, dst)
	if err == nil || !isCrossDevice(err) {
		return err
	}
	return copyThenDelete(fsys, src, dst)
}

func copyThenDelete(fsys afero.Fs, src, dst string) (err error) {
	info, err := fsys.Stat(src)
	if err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+tempSuffix)
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmp)
		}
	}()

	if err = copyContent(fsys, src, tmp, info.Mode().Perm()); err != nil {
		return err
	}
	if err = fsys.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	if err = fsys.Rename(tmp, dst); err != nil {
		return err
	}
	return fsys.Remove(src)
}

func copyContent(fsys afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
