package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *QueueConfig {
	return &QueueConfig{
		RemoteRepo:    "https://example.com/upstream.git",
		BaseRepo:      "https://example.com/mirror.git",
		BaseTag:       "v8.1.0",
		Package:       "build/pkg.tar",
		Components:    []string{"xenbus", "xenfilt"},
		SDVComponents: []string{"xenbus"},
		PatchList:     []string{"patches/0001-fix.patch", "patches/0002-feature.patch"},
	}
}

// TestRebaseState_IsValid checks that only defined states pass validation.
func TestRebaseState_IsValid(t *testing.T) {
	for _, s := range []RebaseState{
		StateStart, StateCloned, StateNotNeeded, StateNeedsRebase,
		StatePulled, StateReset, StatePushed, StateArchived, StateDone,
	} {
		assert.True(t, s.IsValid(), "state %q should be valid", s)
	}
	assert.False(t, RebaseState("rebasing").IsValid())
	assert.False(t, RebaseState("").IsValid())
	assert.Equal(t, "needs-rebase", StateNeedsRebase.String())
}

// TestQueueConfig_Validate covers required fields and patch list integrity.
func TestQueueConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *QueueConfig)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *QueueConfig) {},
		},
		{
			name:   "package is optional",
			mutate: func(c *QueueConfig) { c.Package = "" },
		},
		{
			name:    "missing base tag",
			mutate:  func(c *QueueConfig) { c.BaseTag = "" },
			wantErr: "baseTag",
		},
		{
			name: "missing every repo field",
			mutate: func(c *QueueConfig) {
				c.RemoteRepo = ""
				c.BaseRepo = ""
				c.BaseTag = ""
			},
			wantErr: "remoteRepo, baseRepo, baseTag",
		},
		{
			name:    "blank patch entry",
			mutate:  func(c *QueueConfig) { c.PatchList = append(c.PatchList, "  ") },
			wantErr: "patchList[2] is empty",
		},
		{
			name:    "duplicate patch entry",
			mutate:  func(c *QueueConfig) { c.PatchList = append(c.PatchList, "patches/0001-fix.patch") },
			wantErr: "listed twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestQueueConfig_WithPatch verifies the receiver is never mutated and the
// new patch lands at the end of the application order.
func TestQueueConfig_WithPatch(t *testing.T) {
	cfg := validConfig()

	next, err := cfg.WithPatch("patches/0003-new.patch")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"patches/0001-fix.patch",
		"patches/0002-feature.patch",
		"patches/0003-new.patch",
	}, next.PatchList)
	assert.Len(t, cfg.PatchList, 2, "original config must not change")

	next.Components[0] = "changed"
	assert.Equal(t, "xenbus", cfg.Components[0], "component slices must not be shared")
}

func TestQueueConfig_WithPatchRejects(t *testing.T) {
	cfg := validConfig()

	_, err := cfg.WithPatch("")
	assert.Error(t, err)

	_, err = cfg.WithPatch("patches/0002-feature.patch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in the queue")
}

func TestBuildConfig_WithDefaults(t *testing.T) {
	b := BuildConfig{SDVScript: "sdv.cmd"}.WithDefaults()
	assert.Equal(t, "sdv.cmd", b.SDVScript)
	assert.Equal(t, "proj", b.ProjectDir)
	assert.Equal(t, "Windows Developer Preview Release", b.Configuration)
	assert.Equal(t, `..\msbuild_dvl.bat`, b.DVLScript)
}

// TestCLIError verifies error message formatting and unwrapping.
func TestCLIError(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewCLIError(ExitGitError, "push failed")
		assert.Equal(t, "push failed", err.Error())
		assert.Equal(t, ExitGitError, err.Code)
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with underlying error", func(t *testing.T) {
		underlying := errors.New("connection refused")
		err := WrapCLIError(ExitGitError, "push failed", underlying)
		assert.Equal(t, "push failed: connection refused", err.Error())
		assert.True(t, errors.Is(err, underlying))
	})
}

func TestTaggedErrors(t *testing.T) {
	vcsErr := &VCSError{Args: []string{"push", "-f", "origin", "master:master"}, Status: 128, Stderr: "denied"}
	assert.Equal(t, "git push -f origin master:master returned 128: denied", vcsErr.Error())

	cause := errors.New("permission denied")
	fsErr := &FSError{Op: "rename", Path: "pkg.tar", Err: cause}
	assert.Equal(t, "rename pkg.tar: permission denied", fsErr.Error())
	assert.True(t, errors.Is(fsErr, cause))

	var wrapped error = WrapCLIError(ExitGitError, "rebase failed", vcsErr)
	var target *VCSError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, 128, target.Status)

	buildErr := &BuildError{Component: "xenbus", Script: "sdv.bat", Arg: "/clean", Status: 1}
	assert.Equal(t, "build xenbus: sdv.bat /clean returned 1", buildErr.Error())
}

func TestRebaseOutcome_Enter(t *testing.T) {
	var out RebaseOutcome
	out.Enter(StateStart)
	out.Enter(StateCloned)
	out.Enter(StateNotNeeded)

	assert.Equal(t, StateNotNeeded, out.State)
	assert.Equal(t, []RebaseState{StateStart, StateCloned, StateNotNeeded}, out.Path)
	for _, s := range out.Path {
		assert.True(t, s.IsValid())
	}
}
