package stages

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

const (
	dirPerm  fs.FileMode = 0o755
	filePerm fs.FileMode = 0o644
)

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("ensure directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	// #nosec G306 -- generated assets are public
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename %s: %w", path, err)
	}
	return nil
}

// copyFile copies src to dest through a temp file, keeping the source
// permission bits.
func copyFile(src, dest string) error {
	in, err := os.Open(src) // #nosec G304 -- paths come from configured globs
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm()) // #nosec G304
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// ensureDir creates dir, reporting a merge conflict when a file occupies it
// or one of its parents.
func ensureDir(dir, src string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &MergeConflictError{Src: src, Dest: dir, Reason: "a file exists where a directory is needed"}
		}
		return nil
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		if errors.Is(err, syscall.ENOTDIR) || errors.Is(err, fs.ErrExist) {
			return &MergeConflictError{Src: src, Dest: dir, Reason: "a parent path is a file"}
		}
		return err
	}
	return nil
}
