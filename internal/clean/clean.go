// Package clean removes untracked files from a patch queue checkout.
//
// Only files git reports as untracked ("??" in porcelain status) are
// touched. Ignored files and tracked modifications are left alone.
package clean

import (
	"context"
	"path/filepath"

	"github.com/shinji-kodama/patchqueue/internal/fsutil"
)

// Lister reports untracked files relative to the repository root.
type Lister interface {
	Toplevel(ctx context.Context, dir string) (string, error)
	UntrackedFiles(ctx context.Context, dir string) ([]string, error)
}

// Cleaner deletes untracked files.
type Cleaner struct {
	git Lister
	fs  fsutil.FS

	// Logf receives one line per removed file. May be nil.
	Logf func(format string, args ...interface{})
}

// NewCleaner creates a Cleaner.
func NewCleaner(git Lister, fsys fsutil.FS) *Cleaner {
	return &Cleaner{git: git, fs: fsys}
}

// Clean removes every untracked file under dir and returns the removed
// paths, relative to the repository root. Untracked files elsewhere in
// the repository are left alone. With dryRun set nothing is deleted and
// the returned list is what would have been removed.
//
// The first failed removal stops the run; files removed before it stay
// removed.
func (c *Cleaner) Clean(ctx context.Context, dir string, dryRun bool) ([]string, error) {
	top, err := c.git.Toplevel(ctx, dir)
	if err != nil {
		return nil, err
	}
	paths, err := c.git.UntrackedFiles(ctx, dir)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return paths, nil
	}

	removed := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if c.Logf != nil {
			c.Logf("removing %s", p)
		}
		if err := c.fs.Remove(filepath.Join(top, filepath.FromSlash(p))); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}
