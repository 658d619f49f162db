package queue

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shinji-kodama/patchqueue/internal/model"
)

// Stager stages files for commit.
type Stager interface {
	Add(ctx context.Context, dir, path string) error
}

// AddPatch appends patch to the end of the queue stored at queuePath,
// rewrites the queue file, and stages both the patch and the queue file.
//
// patch is interpreted relative to the directory holding the queue file,
// which is also where git runs. The stored config is returned.
func AddPatch(ctx context.Context, git Stager, queuePath, patch string) (*model.QueueConfig, error) {
	cfg, err := Load(queuePath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(queuePath)
	patchPath := patch
	if !filepath.IsAbs(patchPath) {
		patchPath = filepath.Join(dir, patch)
	}
	if _, err := os.Stat(patchPath); err != nil {
		return nil, &model.FSError{Op: "stat", Path: patchPath, Err: err}
	}

	next, err := cfg.WithPatch(filepath.ToSlash(patch))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "cannot add patch", err)
	}

	if err := Save(queuePath, next); err != nil {
		return nil, err
	}
	if err := git.Add(ctx, dir, patch); err != nil {
		return nil, err
	}
	if err := git.Add(ctx, dir, filepath.Base(queuePath)); err != nil {
		return nil, err
	}
	return next, nil
}
