// Package cli: addpatch.go implements the "patchqueue addpatch" command.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/patchqueue/internal/queue"
)

// NewAddPatchCommand creates the "addpatch" cobra command.
func NewAddPatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "addpatch <patch-file>",
		Short: "Append a patch to the queue and stage it",
		Long: `Append a patch file to the end of the queue's patch list, rewrite the
queue file, and git add both the patch and the queue file.

The patch path is relative to the directory holding the queue file.

Examples:
  patchqueue addpatch patches/0007-fix-balloon.patch`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddPatch(cmd.Context(), args[0])
		},
	}
}

func runAddPatch(ctx context.Context, patch string) error {
	VerboseLog("Adding %s to %s", patch, configPath)

	cfg, err := queue.AddPatch(ctx, newGit(), configPath, patch)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		printJSON(map[string]interface{}{
			"added":     patch,
			"position":  len(cfg.PatchList),
			"patchList": cfg.PatchList,
		})
		return nil
	}
	fmt.Fprintf(stdout, "Added %s to the queue (%d patches)\n", patch, len(cfg.PatchList))
	return nil
}
