// Package fsutil is the filesystem collaborator of the patch queue tools:
// existence checks, renames, and tree removal that tolerates read-only
// files left behind by git.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shinji-kodama/patchqueue/internal/model"
)

// FS is the set of filesystem operations the coordinator and cleaner use.
type FS interface {
	// Exists reports whether anything exists at path.
	Exists(path string) bool

	// RemoveTree deletes path and everything under it, first making
	// read-only entries writable.
	RemoveTree(path string) error

	// Remove deletes a single file.
	Remove(path string) error

	// Rename moves oldPath to newPath.
	Rename(oldPath, newPath string) error
}

// OSFS implements FS on the real filesystem.
type OSFS struct{}

// NewOSFS returns the real filesystem.
func NewOSFS() OSFS {
	return OSFS{}
}

// Exists uses Lstat so a dangling symlink still counts as present.
func (OSFS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// RemoveTree clears read-only bits under path, then removes it. Git marks
// pack files read-only, which makes a plain RemoveAll fail on Windows.
// A missing path is not an error.
func (OSFS) RemoveTree(path string) error {
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode().Perm()&0200 == 0 {
			return os.Chmod(p, info.Mode().Perm()|0200)
		}
		return nil
	})
	if walkErr != nil {
		return &model.FSError{Op: "chmod", Path: path, Err: walkErr}
	}
	if err := os.RemoveAll(path); err != nil {
		return &model.FSError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Remove deletes a single file, making it writable first if needed.
func (OSFS) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && errors.Is(err, fs.ErrPermission) {
		if info, statErr := os.Lstat(path); statErr == nil && info.Mode().Perm()&0200 == 0 {
			_ = os.Chmod(path, info.Mode().Perm()|0200)
			err = os.Remove(path)
		}
	}
	if err != nil {
		return &model.FSError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Rename moves oldPath to newPath.
func (OSFS) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return &model.FSError{Op: "rename", Path: oldPath, Err: err}
	}
	return nil
}

// ArchiveSuffix separates a package path from its archive counter.
const ArchiveSuffix = ".rebase."

// NextArchiveName returns <pkg>.rebase.<N> for the smallest N >= 0 that
// does not exist yet.
func NextArchiveName(fsys FS, pkg string) string {
	for n := 0; ; n++ {
		candidate := pkg + ArchiveSuffix + strconv.Itoa(n)
		if !fsys.Exists(candidate) {
			return candidate
		}
	}
}

// Archive moves pkg to NextArchiveName and returns the new path. When pkg
// does not exist nothing happens and the returned path is empty.
func Archive(fsys FS, pkg string) (string, error) {
	if pkg == "" || !fsys.Exists(pkg) {
		return "", nil
	}
	dest := NextArchiveName(fsys, pkg)
	if err := fsys.Rename(pkg, dest); err != nil {
		return "", err
	}
	return dest, nil
}
