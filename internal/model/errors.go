package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDiverged is returned when strict divergence checking is enabled and
// the base tag exists in the mirror but is not an ancestor of its HEAD.
var ErrDiverged = errors.New("mirror history diverged from base tag")

// VCSError reports a version-control command that exited non-zero.
type VCSError struct {
	// Args is the full argument list, without the binary name.
	Args []string

	// Status is the command's exit status.
	Status int

	// Stderr is the trimmed error output, if any was captured.
	Stderr string
}

func (e *VCSError) Error() string {
	msg := fmt.Sprintf("git %s returned %d", strings.Join(e.Args, " "), e.Status)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// FSError reports a failed filesystem operation.
type FSError struct {
	// Op is the operation name ("remove", "rename", "write", ...).
	Op string

	// Path is the path the operation was applied to.
	Path string

	Err error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *FSError) Unwrap() error {
	return e.Err
}

// BuildError reports a build script that exited non-zero.
type BuildError struct {
	Component string
	Script    string
	Arg       string
	Status    int
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %s %s returned %d", e.Component, e.Script, e.Arg, e.Status)
}
