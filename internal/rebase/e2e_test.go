package rebase

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/patchqueue/internal/fsutil"
	"github.com/shinji-kodama/patchqueue/internal/model"
	"github.com/shinji-kodama/patchqueue/internal/vcs"
)

// runTestGit runs a git command in dir and fails the test on a non-zero exit.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return strings.TrimSpace(string(output))
}

func commitFile(t *testing.T, dir, name, msg string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(msg+"\n"), 0644))
	runTestGit(t, dir, "add", name)
	runTestGit(t, dir, "commit", "-m", msg)
	return runTestGit(t, dir, "rev-parse", "HEAD")
}

// queueFixture is an upstream repository with three commits on master and
// a bare mirror whose master is still at the first one.
type queueFixture struct {
	upstream string
	mirror   string
	root     string

	first, second, third string
}

func setupQueueFixture(t *testing.T) *queueFixture {
	t.Helper()

	base := t.TempDir()
	f := &queueFixture{
		upstream: filepath.Join(base, "upstream"),
		mirror:   filepath.Join(base, "mirror.git"),
		root:     filepath.Join(base, "queue"),
	}
	require.NoError(t, os.MkdirAll(f.upstream, 0755))
	require.NoError(t, os.MkdirAll(f.root, 0755))

	runTestGit(t, f.upstream, "init")
	runTestGit(t, f.upstream, "symbolic-ref", "HEAD", "refs/heads/master")
	runTestGit(t, f.upstream, "config", "user.email", "test@example.com")
	runTestGit(t, f.upstream, "config", "user.name", "Test User")

	f.first = commitFile(t, f.upstream, "a.txt", "first")

	runTestGit(t, base, "init", "--bare", f.mirror)
	runTestGit(t, f.mirror, "symbolic-ref", "HEAD", "refs/heads/master")
	runTestGit(t, f.upstream, "push", f.mirror, "master:master")

	f.second = commitFile(t, f.upstream, "b.txt", "second")
	f.third = commitFile(t, f.upstream, "c.txt", "third")
	return f
}

func (f *queueFixture) config(baseTag string) *model.QueueConfig {
	return &model.QueueConfig{
		RemoteRepo: f.upstream,
		BaseRepo:   f.mirror,
		BaseTag:    baseTag,
		Package:    filepath.Join("build", "pkg.tar"),
	}
}

func (f *queueFixture) coordinator() *Coordinator {
	return NewCoordinator(vcs.NewGit(vcs.NewExecRunner()), fsutil.NewOSFS(), f.root)
}

// TestRebaseEndToEnd: the base tag is absent from the mirror, upstream has
// moved on, and a package exists. After the run the mirror's master is
// exactly the base commit and the package has been archived intact.
func TestRebaseEndToEnd(t *testing.T) {
	f := setupQueueFixture(t)

	pkg := filepath.Join(f.root, "build", "pkg.tar")
	require.NoError(t, os.MkdirAll(filepath.Dir(pkg), 0755))
	require.NoError(t, os.WriteFile(pkg, []byte("package-bytes\x00\x01"), 0644))

	out, err := f.coordinator().Rebase(context.Background(), f.config(f.second))
	require.NoError(t, err)

	assert.True(t, out.Rebased)
	assert.Equal(t, model.StateDone, out.State)
	assert.Equal(t, f.second, runTestGit(t, f.mirror, "rev-parse", "master"),
		"mirror master must point exactly at the base commit, not upstream's tip")

	_, statErr := os.Stat(pkg)
	assert.True(t, os.IsNotExist(statErr), "package must be moved away")

	assert.Equal(t, pkg+".rebase.0", out.ArchivedPath)
	data, err := os.ReadFile(pkg + ".rebase.0")
	require.NoError(t, err)
	assert.Equal(t, "package-bytes\x00\x01", string(data))
}

// TestRebaseTwice verifies a second run reuses the workspace name without
// failing and finds nothing to do.
func TestRebaseTwice(t *testing.T) {
	f := setupQueueFixture(t)
	c := f.coordinator()
	cfg := f.config(f.second)

	first, err := c.Rebase(context.Background(), cfg)
	require.NoError(t, err)
	require.True(t, first.Rebased)

	// A file git would have made read-only must not block the rebuild.
	marker := filepath.Join(c.Workspace(), "readonly.txt")
	require.NoError(t, os.WriteFile(marker, []byte("x"), 0444))

	second, err := c.Rebase(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, second.Rebased)
	assert.NoFileExists(t, marker)
	assert.Equal(t, f.second, runTestGit(t, f.mirror, "rev-parse", "master"))
}

func TestRebaseAlreadyBased(t *testing.T) {
	f := setupQueueFixture(t)

	pkg := filepath.Join(f.root, "build", "pkg.tar")
	require.NoError(t, os.MkdirAll(filepath.Dir(pkg), 0755))
	require.NoError(t, os.WriteFile(pkg, []byte("keep"), 0644))

	out, err := f.coordinator().Rebase(context.Background(), f.config(f.first))
	require.NoError(t, err)

	assert.False(t, out.Rebased)
	assert.FileExists(t, pkg)
	assert.Equal(t, f.first, runTestGit(t, f.mirror, "rev-parse", "master"))
}

// TestRebaseStrictDivergenceEndToEnd publishes tag v2 (the second commit)
// to the mirror and checks both sides of the strict divergence rule.
func TestRebaseStrictDivergenceEndToEnd(t *testing.T) {
	t.Run("mirror behind the tag fast-forwards", func(t *testing.T) {
		f := setupQueueFixture(t)
		runTestGit(t, f.upstream, "tag", "v2", f.second)
		runTestGit(t, f.upstream, "push", f.mirror, "refs/tags/v2")

		c := f.coordinator()
		c.StrictDivergence = true
		out, err := c.Rebase(context.Background(), f.config("v2"))
		require.NoError(t, err)

		assert.True(t, out.Rebased)
		assert.Equal(t, f.second, runTestGit(t, f.mirror, "rev-parse", "master"))
	})

	t.Run("mirror on a separate line is refused", func(t *testing.T) {
		f := setupQueueFixture(t)
		runTestGit(t, f.upstream, "tag", "v2", f.second)
		runTestGit(t, f.upstream, "checkout", "-b", "side", f.first)
		side := commitFile(t, f.upstream, "side.txt", "side")
		runTestGit(t, f.upstream, "checkout", "master")
		runTestGit(t, f.upstream, "push", "-f", f.mirror, "side:master", "refs/tags/v2")

		c := f.coordinator()
		c.StrictDivergence = true
		out, err := c.Rebase(context.Background(), f.config("v2"))
		require.ErrorIs(t, err, model.ErrDiverged)

		assert.Equal(t, model.StateNeedsRebase, out.State)
		assert.Equal(t, side, runTestGit(t, f.mirror, "rev-parse", "master"), "mirror is untouched")
	})
}
