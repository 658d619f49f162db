// Package cli: sdv.go implements the "patchqueue sdv" command.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/patchqueue/internal/build"
	"github.com/shinji-kodama/patchqueue/internal/model"
	"github.com/shinji-kodama/patchqueue/internal/vcs"
)

// NewSDVCommand creates the "sdv" cobra command.
func NewSDVCommand() *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "sdv",
		Short: "Run the static driver verifier passes for each component",
		Long: `Run the static driver verifier build passes (/clean, /check:default.sdv,
then the DVL script) for every entry in sdvComponents.

Script paths and the project directory come from the queue file's
build section.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSDV(cmd.Context(), keepGoing)
		},
	}

	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "Run every pass even after one fails")
	return cmd
}

func runSDV(ctx context.Context, keepGoing bool) error {
	cfg, err := loadQueue()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	runner := vcs.NewExecRunner()
	if !IsJSONOutput() {
		// Build tools are chatty; their output is the progress report.
		runner.Stream = stdout
	}
	b := build.NewBuilder(runner, cwd)
	b.KeepGoing = keepGoing
	b.Logf = VerboseLog

	passes, err := b.Run(ctx, cfg)

	if IsJSONOutput() {
		if passes == nil {
			passes = []build.Pass{}
		}
		printJSON(map[string]interface{}{"passes": passes})
	} else {
		for _, p := range passes {
			fmt.Fprintf(stdout, "%-12s %-20s exit %d\n", p.Component, p.Arg, p.Status)
		}
	}
	return err
}
