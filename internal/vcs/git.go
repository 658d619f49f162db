package vcs

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/patchqueue/internal/model"
)

// DefaultBranchRefspec is the refspec the patch queue pulls and pushes.
// The mirror only ever tracks master.
const DefaultBranchRefspec = "master:master"

// Git issues git commands through a Runner.
//
// Every method takes the directory to run in explicitly. The process
// working directory is never changed, so callers never have to restore it.
type Git struct {
	runner Runner

	// Binary is the git executable name or path.
	Binary string

	// Logf, when set, is called with each command before it runs.
	Logf func(format string, args ...interface{})
}

// NewGit creates a Git that runs the "git" binary found on PATH.
func NewGit(runner Runner) *Git {
	return &Git{runner: runner, Binary: "git"}
}

// Clone clones repo into dest. dest must not exist.
func (g *Git) Clone(ctx context.Context, repo, dest string) error {
	_, err := g.run(ctx, "", "clone", repo, dest)
	return err
}

// CloneTo clones repo into dest and checks out ref.
func (g *Git) CloneTo(ctx context.Context, repo, ref, dest string) error {
	if err := g.Clone(ctx, repo, dest); err != nil {
		return err
	}
	return g.Checkout(ctx, dest, ref)
}

// Checkout checks out ref in dir.
func (g *Git) Checkout(ctx context.Context, dir, ref string) error {
	_, err := g.run(ctx, dir, "checkout", ref)
	return err
}

// Pull pulls refspec from repo into the repository at dir.
func (g *Git) Pull(ctx context.Context, dir, repo, refspec string) error {
	_, err := g.run(ctx, dir, "pull", repo, refspec)
	return err
}

// ResetHard moves the current branch and the working tree of dir to ref.
func (g *Git) ResetHard(ctx context.Context, dir, ref string) error {
	_, err := g.run(ctx, dir, "reset", "--hard", ref)
	return err
}

// Push publishes master to repo's master.
func (g *Git) Push(ctx context.Context, dir, repo string) error {
	_, err := g.run(ctx, dir, "push", repo, DefaultBranchRefspec)
	return err
}

// PushForce publishes master to repo's master, overwriting whatever
// history the remote branch had.
func (g *Git) PushForce(ctx context.Context, dir, repo string) error {
	_, err := g.run(ctx, dir, "push", "-f", repo, DefaultBranchRefspec)
	return err
}

// Add stages path in the repository at dir.
func (g *Git) Add(ctx context.Context, dir, path string) error {
	_, err := g.run(ctx, dir, "add", path)
	return err
}

// IsAncestor reports whether ancestor is reachable from descendant.
//
// Any non-zero status counts as "not an ancestor", including the status
// git returns when ancestor does not name a known revision at all.
// The error return only reports a command that could not be run.
func (g *Git) IsAncestor(ctx context.Context, dir, ancestor, descendant string) (bool, error) {
	res, err := g.exec(ctx, dir, "merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		return false, err
	}
	return res.Status == 0, nil
}

// CommitExists reports whether ref resolves to a commit in dir.
func (g *Git) CommitExists(ctx context.Context, dir, ref string) (bool, error) {
	res, err := g.exec(ctx, dir, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return false, err
	}
	return res.Status == 0, nil
}

// RevParse resolves ref to a full commit hash.
func (g *Git) RevParse(ctx context.Context, dir, ref string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Toplevel returns the root of the working tree containing dir.
func (g *Git) Toplevel(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(strings.TrimSpace(out)), nil
}

// UntrackedFiles lists every untracked, non-ignored file under dir. The
// paths are relative to the repository root, not to dir, because that is
// how porcelain status reports them.
func (g *Git) UntrackedFiles(ctx context.Context, dir string) ([]string, error) {
	out, err := g.run(ctx, dir, "status", "--porcelain", "-z", "--untracked-files=all", "--", ".")
	if err != nil {
		return nil, err
	}
	return parseUntracked(out), nil
}

// run executes git and converts a non-zero status into *model.VCSError.
func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	res, err := g.exec(ctx, dir, args...)
	if err != nil {
		return "", err
	}
	if res.Status != 0 {
		return "", &model.VCSError{
			Args:   args,
			Status: res.Status,
			Stderr: strings.TrimSpace(res.Stderr),
		}
	}
	return res.Stdout, nil
}

func (g *Git) exec(ctx context.Context, dir string, args ...string) (Result, error) {
	if g.Logf != nil {
		if dir != "" {
			g.Logf("git %s (in %s)", strings.Join(args, " "), dir)
		} else {
			g.Logf("git %s", strings.Join(args, " "))
		}
	}
	return g.runner.Run(ctx, Command{Dir: dir, Name: g.Binary, Args: args})
}

// parseUntracked extracts untracked paths from `git status --porcelain -z`.
//
// Entries are NUL-terminated and start with a two-letter status code and
// a space. Untracked entries use the code "??". Rename entries ("R ")
// are followed by an extra NUL-terminated source path, which is skipped.
func parseUntracked(output string) []string {
	var paths []string

	entries := strings.Split(output, "\x00")
	for i := 0; i < len(entries); i++ {
		entry := entries[i]
		if len(entry) < 4 {
			continue
		}
		code, path := entry[:2], entry[3:]
		switch {
		case code == "??":
			paths = append(paths, path)
		case code[0] == 'R' || code[0] == 'C':
			i++
		}
	}
	return paths
}
