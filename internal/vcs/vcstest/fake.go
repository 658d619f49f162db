// Package vcstest provides a scripted vcs.Runner for unit tests.
package vcstest

import (
	"context"
	"strings"
	"sync"

	"github.com/shinji-kodama/patchqueue/internal/vcs"
)

// Response is the scripted result for a matching command.
type Response struct {
	Status int
	Stdout string
	Stderr string

	// Err simulates a command that could not be started.
	Err error
}

// FakeRunner records every command and answers from a table of
// argument prefixes. Commands with no matching prefix succeed with
// empty output.
type FakeRunner struct {
	mu        sync.Mutex
	calls     []vcs.Command
	responses map[string]Response

	// OnRun, when set, is called for each command before the response is
	// looked up. Tests use it to create files a real clone would create.
	OnRun func(cmd vcs.Command)

	// Match, when set, is consulted before the prefix table. Returning
	// false falls through to the table.
	Match func(cmd vcs.Command) (Response, bool)
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On registers resp for every command whose space-joined arguments start
// with prefix. The longest matching prefix wins.
func (f *FakeRunner) On(prefix string, resp Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = resp
	return f
}

// Run implements vcs.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd vcs.Command) (vcs.Result, error) {
	if f.OnRun != nil {
		f.OnRun(cmd)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)

	if err := ctx.Err(); err != nil {
		return vcs.Result{}, err
	}

	if f.Match != nil {
		if resp, ok := f.Match(cmd); ok {
			return resp.result()
		}
	}

	line := strings.Join(cmd.Args, " ")
	var (
		best  Response
		found bool
		size  = -1
	)
	for prefix, resp := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > size {
			best, found, size = resp, true, len(prefix)
		}
	}
	if !found {
		return vcs.Result{}, nil
	}
	return best.result()
}

func (r Response) result() (vcs.Result, error) {
	if r.Err != nil {
		return vcs.Result{}, r.Err
	}
	return vcs.Result{Status: r.Status, Stdout: r.Stdout, Stderr: r.Stderr}, nil
}

// Calls returns a copy of every command run so far.
func (f *FakeRunner) Calls() []vcs.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]vcs.Command(nil), f.calls...)
}

// Lines returns each recorded command's arguments joined by spaces.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = strings.Join(c.Args, " ")
	}
	return lines
}

// Count returns how many recorded commands start with prefix.
func (f *FakeRunner) Count(prefix string) int {
	n := 0
	for _, line := range f.Lines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}
