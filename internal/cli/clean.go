// Package cli: clean.go implements the "patchqueue clean" command.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/patchqueue/internal/clean"
	"github.com/shinji-kodama/patchqueue/internal/fsutil"
	"github.com/shinji-kodama/patchqueue/internal/model"
)

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean [dir]",
		Short: "Delete untracked files from the checkout",
		Long: `Delete every file git reports as untracked in the given directory
(default: the current directory). Ignored files are kept.

Examples:
  patchqueue clean
  patchqueue clean --dry-run`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runClean(cmd.Context(), dir, dryRun)
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "List the files without deleting them")
	return cmd
}

func runClean(ctx context.Context, dir string, dryRun bool) error {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
		}
		dir = cwd
	}

	c := clean.NewCleaner(newGit(), fsutil.NewOSFS())
	c.Logf = VerboseLog

	removed, err := c.Clean(ctx, dir, dryRun)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		if removed == nil {
			removed = []string{}
		}
		printJSON(map[string]interface{}{
			"dryRun":  dryRun,
			"removed": removed,
		})
		return nil
	}
	for _, p := range removed {
		fmt.Fprintln(stdout, p)
	}
	return nil
}
