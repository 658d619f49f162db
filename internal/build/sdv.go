// Package build drives the static driver verifier (SDV) build passes for
// the components of a patch queue.
//
// Each component gets three passes, run from <ProjectDir>/<component>:
//
//	SDVScript with SDV_ARG=/clean
//	SDVScript with SDV_ARG=/check:default.sdv
//	DVLScript with SDV_ARG empty
//
// The scripts read their parameters from the environment: CONFIGURATION,
// SDV_PROJ (the component's .vcxproj name) and SDV_ARG.
package build

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/shinji-kodama/patchqueue/internal/model"
	"github.com/shinji-kodama/patchqueue/internal/vcs"
)

// Pass is one script invocation for one component.
type Pass struct {
	Component string `json:"component"`
	Script    string `json:"script"`
	Arg       string `json:"arg"`
	Status    int    `json:"status"`
}

// Builder runs the SDV passes.
type Builder struct {
	runner vcs.Runner

	// Root is the directory ProjectDir is resolved against.
	Root string

	// KeepGoing continues with the remaining passes after a failure and
	// reports every failure at the end.
	KeepGoing bool

	// Logf receives progress messages. May be nil.
	Logf func(format string, args ...interface{})
}

// NewBuilder creates a Builder rooted at root.
func NewBuilder(runner vcs.Runner, root string) *Builder {
	return &Builder{runner: runner, Root: root}
}

// Passes lists the passes for component in execution order.
func Passes(b model.BuildConfig, component string) []Pass {
	return []Pass{
		{Component: component, Script: b.SDVScript, Arg: "/clean"},
		{Component: component, Script: b.SDVScript, Arg: "/check:default.sdv"},
		{Component: component, Script: b.DVLScript, Arg: ""},
	}
}

// Run executes every pass for every SDV component of cfg and returns the
// passes that ran, with their exit status.
func (b *Builder) Run(ctx context.Context, cfg *model.QueueConfig) ([]Pass, error) {
	settings := cfg.Build.WithDefaults()

	var (
		ran  []Pass
		errs []error
	)
	for _, component := range cfg.SDVComponents {
		for _, pass := range Passes(settings, component) {
			status, err := b.runPass(ctx, settings, pass)
			if err != nil {
				return ran, err
			}
			pass.Status = status
			ran = append(ran, pass)

			if status != 0 {
				buildErr := &model.BuildError{Component: component, Script: pass.Script, Arg: pass.Arg, Status: status}
				if !b.KeepGoing {
					return ran, buildErr
				}
				errs = append(errs, buildErr)
			}
		}
	}
	return ran, errors.Join(errs...)
}

func (b *Builder) runPass(ctx context.Context, settings model.BuildConfig, pass Pass) (int, error) {
	dir := filepath.Join(b.Root, settings.ProjectDir, pass.Component)
	if filepath.IsAbs(settings.ProjectDir) {
		dir = filepath.Join(settings.ProjectDir, pass.Component)
	}

	if b.Logf != nil {
		b.Logf("%s: %s SDV_ARG=%q", pass.Component, pass.Script, pass.Arg)
	}
	res, err := b.runner.Run(ctx, vcs.Command{
		Dir:  dir,
		Name: pass.Script,
		Env: []string{
			"CONFIGURATION=" + settings.Configuration,
			"SDV_PROJ=" + pass.Component + ".vcxproj",
			"SDV_ARG=" + pass.Arg,
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Status, nil
}
