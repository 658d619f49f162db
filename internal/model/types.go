// Package model defines the domain types for the patchqueue CLI.
//
// All entities in this package are plain data: the queue configuration
// loaded from patchqueue.yaml, the outcome of a rebase run, and the
// state labels the coordinator moves through. Nothing here performs I/O.
package model

import (
	"fmt"
	"strings"
)

// RebaseState is the coordinator's position in a single rebase run.
// The transitions are:
//
//	start → cloned → not-needed → done
//	start → cloned → needs-rebase → pulled → reset → pushed → [archived] → done
//
// No state survives between runs; the workspace is rebuilt every time.
type RebaseState string

const (
	// StateStart is the state before any work has been done.
	StateStart RebaseState = "start"

	// StateCloned means the mirror workspace was freshly cloned from the base repository.
	StateCloned RebaseState = "cloned"

	// StateNotNeeded means the base tag is already an ancestor of the mirror's HEAD.
	StateNotNeeded RebaseState = "not-needed"

	// StateNeedsRebase means the base tag is not an ancestor of the mirror's HEAD.
	StateNeedsRebase RebaseState = "needs-rebase"

	// StatePulled means upstream master was pulled into the workspace.
	StatePulled RebaseState = "pulled"

	// StateReset means the workspace was hard-reset to the base tag.
	StateReset RebaseState = "reset"

	// StatePushed means the workspace master was force-pushed to the base repository.
	StatePushed RebaseState = "pushed"

	// StateArchived means a stale package artifact was renamed out of the way.
	StateArchived RebaseState = "archived"

	// StateDone is the terminal state of a successful run.
	StateDone RebaseState = "done"
)

// String returns the string representation of RebaseState.
func (s RebaseState) String() string {
	return string(s)
}

// IsValid checks whether the RebaseState value is one of the predefined states.
func (s RebaseState) IsValid() bool {
	switch s {
	case StateStart, StateCloned, StateNotNeeded, StateNeedsRebase,
		StatePulled, StateReset, StatePushed, StateArchived, StateDone:
		return true
	default:
		return false
	}
}

// BuildConfig describes how the sdv command drives the native build.
// Scripts are run from inside <ProjectDir>/<component>.
type BuildConfig struct {
	// ProjectDir is the directory holding one subdirectory per component.
	ProjectDir string `yaml:"projectDir,omitempty" json:"projectDir,omitempty"`

	// Configuration is exported to the scripts as CONFIGURATION.
	Configuration string `yaml:"configuration,omitempty" json:"configuration,omitempty"`

	// SDVScript runs the static driver verifier passes (/clean, /check).
	SDVScript string `yaml:"sdvScript,omitempty" json:"sdvScript,omitempty"`

	// DVLScript produces the driver verification log.
	DVLScript string `yaml:"dvlScript,omitempty" json:"dvlScript,omitempty"`
}

// DefaultBuildConfig returns the build settings used when the queue file
// does not override them.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		ProjectDir:    "proj",
		Configuration: "Windows Developer Preview Release",
		SDVScript:     `..\msbuild_sdv.bat`,
		DVLScript:     `..\msbuild_dvl.bat`,
	}
}

// WithDefaults fills every empty field from DefaultBuildConfig.
func (b BuildConfig) WithDefaults() BuildConfig {
	d := DefaultBuildConfig()
	if b.ProjectDir == "" {
		b.ProjectDir = d.ProjectDir
	}
	if b.Configuration == "" {
		b.Configuration = d.Configuration
	}
	if b.SDVScript == "" {
		b.SDVScript = d.SDVScript
	}
	if b.DVLScript == "" {
		b.DVLScript = d.DVLScript
	}
	return b
}

// QueueConfig is the patch queue description: where upstream lives, which
// mirror we publish to, which base revision the patches sit on, and the
// ordered patch list.
//
// A QueueConfig is loaded once per invocation and treated as immutable.
// WithPatch is the only way to derive a modified copy.
type QueueConfig struct {
	// RemoteRepo is the URL of the upstream source.
	RemoteRepo string `yaml:"remoteRepo" json:"remoteRepo"`

	// BaseRepo is the URL of the mirror this tool force-publishes to.
	BaseRepo string `yaml:"baseRepo" json:"baseRepo"`

	// BaseTag is the revision the patch queue is currently rebased onto.
	BaseTag string `yaml:"baseTag" json:"baseTag"`

	// Package is the path of the build artifact. It may not exist.
	Package string `yaml:"package,omitempty" json:"package,omitempty"`

	// Components and SDVComponents are opaque component identifiers.
	Components    []string `yaml:"components,omitempty" json:"components,omitempty"`
	SDVComponents []string `yaml:"sdvComponents,omitempty" json:"sdvComponents,omitempty"`

	// PatchList is the patch files in application order.
	PatchList []string `yaml:"patchList,omitempty" json:"patchList,omitempty"`

	Build BuildConfig `yaml:"build,omitempty" json:"build,omitempty"`
}

// Validate checks the fields the rebase coordinator depends on and the
// integrity of the patch list.
func (c *QueueConfig) Validate() error {
	var missing []string
	if c.RemoteRepo == "" {
		missing = append(missing, "remoteRepo")
	}
	if c.BaseRepo == "" {
		missing = append(missing, "baseRepo")
	}
	if c.BaseTag == "" {
		missing = append(missing, "baseTag")
	}
	if len(missing) > 0 {
		return fmt.Errorf("queue config: missing required field(s): %s", strings.Join(missing, ", "))
	}

	seen := make(map[string]int, len(c.PatchList))
	for i, p := range c.PatchList {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("queue config: patchList[%d] is empty", i)
		}
		if j, dup := seen[p]; dup {
			return fmt.Errorf("queue config: patch %q listed twice (entries %d and %d)", p, j, i)
		}
		seen[p] = i
	}
	return nil
}

// WithPatch returns a copy of the config with patch appended to the
// patch list. The receiver is left untouched.
func (c *QueueConfig) WithPatch(patch string) (*QueueConfig, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, fmt.Errorf("patch name must not be empty")
	}
	for _, p := range c.PatchList {
		if p == patch {
			return nil, fmt.Errorf("patch %q is already in the queue", patch)
		}
	}

	next := *c
	next.Components = append([]string(nil), c.Components...)
	next.SDVComponents = append([]string(nil), c.SDVComponents...)
	next.PatchList = append(append([]string(nil), c.PatchList...), patch)
	return &next, nil
}

// RebaseOutcome reports what a single rebase run did.
type RebaseOutcome struct {
	// Rebased is true when the base had moved and the mirror was reset and pushed.
	Rebased bool `json:"rebased"`

	// BaseTag is the revision the mirror was checked against.
	BaseTag string `json:"baseTag"`

	// Workspace is the absolute path of the mirror clone.
	Workspace string `json:"workspace"`

	// ArchivedPath is where a stale package artifact was moved.
	// Empty when no rebase happened or no artifact existed.
	ArchivedPath string `json:"archivedPath,omitempty"`

	// State is the last state the run reached.
	State RebaseState `json:"state"`

	// Path lists every state entered, in order.
	Path []RebaseState `json:"path"`
}

// Enter records a transition to s.
func (o *RebaseOutcome) Enter(s RebaseState) {
	o.State = s
	o.Path = append(o.Path, s)
}

// ExitCode defines the CLI exit codes. Scripts calling patchqueue can
// branch on these to tell a git failure from a bad config file.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the queue file is missing or invalid.
	ExitConfigError ExitCode = 2

	// ExitFilesystemError indicates a delete, rename, or write failed.
	ExitFilesystemError ExitCode = 3

	// ExitBuildError indicates a build script returned a non-zero status.
	ExitBuildError ExitCode = 4

	// ExitGitError indicates a git command returned a non-zero status.
	ExitGitError ExitCode = 5

	// ExitDiverged indicates the mirror diverged from the base tag and
	// strict divergence checking refused to reset it.
	ExitDiverged ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
