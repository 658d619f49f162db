package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultWaitDelay bounds how long Run waits for the output pipes to close
// after the context kills a command. Grandchildren such as ssh or
// git-remote-https can hold the pipes open past the parent's death.
const DefaultWaitDelay = 5 * time.Second

// Command is a single process invocation.
type Command struct {
	// Dir is the working directory. Empty means the current process directory.
	Dir string

	// Name is the program to run, e.g. "git".
	Name string

	// Args are the program arguments, not including Name.
	Args []string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// String renders the command the way a user would type it.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is what a finished process reported.
type Result struct {
	// Status is the exit status. Zero means success.
	Status int

	Stdout string
	Stderr string
}

// Runner executes commands. A non-zero exit is reported through
// Result.Status; the error return is reserved for commands that could not
// be run at all (missing binary, cancelled context).
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands as child processes via os/exec.
type ExecRunner struct {
	// Stream, when set, receives a copy of the child's stdout and stderr
	// as they are produced.
	Stream io.Writer

	// WaitDelay is passed to exec.Cmd.WaitDelay. Zero waits for the pipes
	// to close no matter how long that takes.
	WaitDelay time.Duration
}

// NewExecRunner creates an ExecRunner that only captures output.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: DefaultWaitDelay}
}

// Run starts cmd, waits for it, and returns its exit status and output.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	// #nosec G204 -- commands are built internally from the queue config
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.WaitDelay = r.WaitDelay
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	var stdout, stderr strings.Builder
	if r.Stream != nil {
		c.Stdout = io.MultiWriter(&stdout, r.Stream)
		c.Stderr = io.MultiWriter(&stderr, r.Stream)
	} else {
		c.Stdout = &stdout
		c.Stderr = &stderr
	}

	err := c.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	// A killed child also yields an ExitError, so the context has to be
	// checked first or a timeout would look like an ordinary failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s: %w", cmd, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Status = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("%s: %w", cmd, err)
}
