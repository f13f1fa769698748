package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, mode)
}

// Promote moves a finished temp file to its public name. Both paths must
// share a directory so the rename is atomic; an existing file at dst is
// replaced.
func Promote(tmp, dst string) error {
	if filepath.Clean(filepath.Dir(tmp)) != filepath.Clean(filepath.Dir(dst)) {
		return fmt.Errorf("promote %s: destination %s is in a different directory", tmp, dst)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("promote %s: %w", filepath.Base(tmp), err)
	}
	return nil
}

// RemoveQuietly deletes path and reports whether a file was removed. Missing
// files and removal errors are ignored.
func RemoveQuietly(path string) bool {
	if path == "" {
		return false
	}
	return os.Remove(path) == nil
}

// FileExists reports whether path names a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// NonEmptyFile returns an error unless path is a regular file with content.
func NonEmptyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
