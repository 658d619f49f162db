// Package rebase implements the patch queue's rebase coordinator.
//
// The coordinator decides whether the queue's base tag is still an
// ancestor of the mirror's master. If it is not, it pulls upstream into
// a fresh clone of the mirror, hard-resets that clone to the base tag,
// force-pushes it back to the mirror, and moves any stale package
// artifact out of the way.
//
// Orchestration steps:
//  1. Remove any previous workspace and clone the mirror into it
//  2. Ask git whether the base tag is an ancestor of HEAD
//  3. If not: pull upstream master, reset --hard to the base tag,
//     force-push master, archive the package artifact
//
// The force-push is not atomic with the local reset. A failed push
// leaves the mirror untouched and the run can simply be repeated.
package rebase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/patchqueue/internal/fsutil"
	"github.com/shinji-kodama/patchqueue/internal/model"
	"github.com/shinji-kodama/patchqueue/internal/vcs"
)

// WorkspaceName is the directory, under the coordinator root, that holds
// the disposable mirror clone.
const WorkspaceName = "rebasequeue"

// Git is the subset of vcs.Git the coordinator needs.
type Git interface {
	Clone(ctx context.Context, repo, dest string) error
	IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error)
	CommitExists(ctx context.Context, dir, ref string) (bool, error)
	Pull(ctx context.Context, dir, repo, refspec string) error
	ResetHard(ctx context.Context, dir, ref string) error
	PushForce(ctx context.Context, dir, repo string) error
}

var _ Git = (*vcs.Git)(nil)

// Coordinator runs the rebase procedure. It owns the workspace directory
// under Root for the duration of a run; two coordinators sharing a Root
// race on the workspace and must not run concurrently.
type Coordinator struct {
	git Git
	fs  fsutil.FS

	// Root is the directory the workspace is created in and the package
	// path is resolved against.
	Root string

	// Refspec is pulled from the remote repository. Defaults to master:master.
	// Its destination must be master, the branch that is reset and pushed.
	Refspec string

	// StrictDivergence refuses to reset a mirror whose history contains
	// the base tag without descending from it.
	StrictDivergence bool

	// Logf receives progress messages. May be nil.
	Logf func(format string, args ...interface{})
}

// NewCoordinator creates a Coordinator working under root.
func NewCoordinator(git Git, fsys fsutil.FS, root string) *Coordinator {
	return &Coordinator{
		git:     git,
		fs:      fsys,
		Root:    root,
		Refspec: vcs.DefaultBranchRefspec,
	}
}

// Workspace returns the absolute path of the mirror clone.
func (c *Coordinator) Workspace() string {
	return filepath.Join(c.Root, WorkspaceName)
}

// Rebase runs one reconciliation of the mirror against cfg.
//
// On failure the returned outcome still reports the last state reached,
// so callers can tell a failed push from a failed clone.
func (c *Coordinator) Rebase(ctx context.Context, cfg *model.QueueConfig) (*model.RebaseOutcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateRefspec(c.refspec()); err != nil {
		return nil, err
	}

	workspace := c.Workspace()
	out := &model.RebaseOutcome{
		BaseTag:   cfg.BaseTag,
		Workspace: workspace,
	}
	out.Enter(model.StateStart)

	if err := c.freshClone(ctx, cfg.BaseRepo, workspace); err != nil {
		return out, err
	}
	out.Enter(model.StateCloned)

	needed, err := c.needsRebase(ctx, workspace, cfg.BaseTag)
	if err != nil {
		return out, err
	}
	if !needed {
		c.logf("base tag %s is already an ancestor of the mirror HEAD", cfg.BaseTag)
		out.Enter(model.StateNotNeeded)
		out.Enter(model.StateDone)
		return out, nil
	}
	out.Enter(model.StateNeedsRebase)
	c.logf("base tag %s is not an ancestor of the mirror HEAD; rebasing", cfg.BaseTag)

	if c.StrictDivergence {
		diverged, err := c.diverged(ctx, workspace, cfg.BaseTag)
		if err != nil {
			return out, err
		}
		if diverged {
			return out, fmt.Errorf("%w: %s and the mirror HEAD are on separate lines of history", model.ErrDiverged, cfg.BaseTag)
		}
	}

	if err := c.git.Pull(ctx, workspace, cfg.RemoteRepo, c.refspec()); err != nil {
		return out, err
	}
	out.Enter(model.StatePulled)

	if err := c.git.ResetHard(ctx, workspace, cfg.BaseTag); err != nil {
		return out, err
	}
	out.Enter(model.StateReset)

	c.logf("force-pushing master to %s", cfg.BaseRepo)
	if err := c.git.PushForce(ctx, workspace, cfg.BaseRepo); err != nil {
		return out, err
	}
	out.Enter(model.StatePushed)
	out.Rebased = true

	archived, err := fsutil.Archive(c.fs, c.packagePath(cfg.Package))
	if err != nil {
		return out, err
	}
	if archived != "" {
		c.logf("archived stale package to %s", archived)
		out.ArchivedPath = archived
		out.Enter(model.StateArchived)
	}

	out.Enter(model.StateDone)
	return out, nil
}

// freshClone removes any leftover workspace and clones repo into it.
func (c *Coordinator) freshClone(ctx context.Context, repo, workspace string) error {
	if c.fs.Exists(workspace) {
		c.logf("removing %s", workspace)
		if err := c.fs.RemoveTree(workspace); err != nil {
			return err
		}
	}
	return c.git.Clone(ctx, repo, workspace)
}

// needsRebase is true exactly when baseTag is not an ancestor of HEAD,
// which includes baseTag being absent from the mirror entirely.
func (c *Coordinator) needsRebase(ctx context.Context, workspace, baseTag string) (bool, error) {
	ok, err := c.git.IsAncestor(ctx, workspace, baseTag, "HEAD")
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// diverged is true when baseTag is in the mirror and neither it nor HEAD
// descends from the other. A mirror that is merely behind the tag is not
// diverged; the reset is a fast-forward for it.
func (c *Coordinator) diverged(ctx context.Context, workspace, baseTag string) (bool, error) {
	present, err := c.git.CommitExists(ctx, workspace, baseTag)
	if err != nil || !present {
		return false, err
	}
	behind, err := c.git.IsAncestor(ctx, workspace, "HEAD", baseTag)
	if err != nil {
		return false, err
	}
	return !behind, nil
}

func (c *Coordinator) packagePath(pkg string) string {
	if pkg == "" || filepath.IsAbs(pkg) {
		return pkg
	}
	return filepath.Join(c.Root, pkg)
}

// ValidateRefspec accepts a pull refspec whose destination is master. A
// bare source ("main") merges into the checked-out master and is accepted
// too. Anything else would leave the pushed branch untouched by the pull.
func ValidateRefspec(refspec string) error {
	spec := strings.TrimPrefix(refspec, "+")
	src, dst, hasDst := strings.Cut(spec, ":")
	if src == "" {
		return fmt.Errorf("refspec %q has no source", refspec)
	}
	if hasDst && dst != "master" && dst != "refs/heads/master" {
		return fmt.Errorf("refspec %q: destination must be master, got %q", refspec, dst)
	}
	return nil
}

func (c *Coordinator) refspec() string {
	if c.Refspec == "" {
		return vcs.DefaultBranchRefspec
	}
	return c.Refspec
}

func (c *Coordinator) logf(format string, args ...interface{}) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}
