// Package cli: rebase.go implements the "patchqueue rebase" command.
//
// The rebase command clones the mirror into ./rebasequeue, checks whether
// the queue's base tag is still an ancestor of the mirror's master, and
// if not, pulls upstream, hard-resets to the base tag, force-pushes the
// mirror, and archives the stale package artifact.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/patchqueue/internal/fsutil"
	"github.com/shinji-kodama/patchqueue/internal/model"
	"github.com/shinji-kodama/patchqueue/internal/rebase"
	"github.com/shinji-kodama/patchqueue/internal/vcs"
)

// rebaseFlags holds the flag values for the rebase command.
type rebaseFlags struct {
	timeout          time.Duration // --timeout: abort git commands after this long
	strictDivergence bool          // --strict-divergence: refuse to reset a diverged mirror
	refspec          string        // --refspec: what to pull from upstream
}

// NewRebaseCommand creates the "rebase" cobra command.
func NewRebaseCommand() *cobra.Command {
	flags := &rebaseFlags{}

	cmd := &cobra.Command{
		Use:   "rebase",
		Short: "Reset the mirror to the base tag if upstream has moved",
		Long: `Rebase the mirror onto the queue's base tag.

The mirror (baseRepo) is cloned into ./rebasequeue, replacing any previous
clone. If the base tag is already an ancestor of the mirror's master,
nothing else happens. Otherwise upstream master is pulled, the clone is
hard-reset to the base tag, and master is force-pushed to the mirror.
A package artifact left from the previous base is renamed to
<package>.rebase.<N>.

--refspec only changes what is pulled. The reset and push always act on
master, so the refspec's destination must be master.

The force-push overwrites the mirror's master. Do not run two rebases
against the same mirror at once.

Examples:
  patchqueue rebase
  patchqueue rebase --timeout 10m
  patchqueue rebase --strict-divergence --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRebase(cmd.Context(), flags)
		},
	}

	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Abort if the rebase takes longer than this (0 = no limit)")
	cmd.Flags().BoolVar(&flags.strictDivergence, "strict-divergence", false, "Fail instead of resetting when the mirror has diverged from the base tag")
	cmd.Flags().StringVar(&flags.refspec, "refspec", vcs.DefaultBranchRefspec, "Refspec pulled from the upstream repository; its destination must be master")

	return cmd
}

// runRebase is the main logic function for the rebase command.
func runRebase(ctx context.Context, flags *rebaseFlags) error {
	if err := rebase.ValidateRefspec(flags.refspec); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid --refspec", err)
	}

	cfg, err := loadQueue()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	c := rebase.NewCoordinator(newGit(), fsutil.NewOSFS(), cwd)
	c.StrictDivergence = flags.strictDivergence
	c.Refspec = flags.refspec
	c.Logf = VerboseLog

	VerboseLog("Checking %s against base tag %s", cfg.BaseRepo, cfg.BaseTag)
	out, err := c.Rebase(ctx, cfg)
	if err != nil {
		state := model.StateStart
		if out != nil {
			state = out.State
		}
		return model.WrapCLIError(ExitCodeFor(err), fmt.Sprintf("rebase failed after state %q", state), err)
	}

	printRebaseResult(out)
	return nil
}

// newGit builds the git wrapper used by every subcommand. In verbose mode
// the child's output is streamed to stderr as well as captured.
func newGit() *vcs.Git {
	runner := vcs.NewExecRunner()
	if verbose {
		runner.Stream = stderr
	}
	g := vcs.NewGit(runner)
	g.Logf = VerboseLog
	return g
}

func printRebaseResult(out *model.RebaseOutcome) {
	if IsJSONOutput() {
		printJSON(out)
		return
	}

	if !out.Rebased {
		fmt.Fprintf(stdout, "Mirror already based on %s; nothing to do\n", out.BaseTag)
		return
	}
	fmt.Fprintf(stdout, "Mirror reset to %s and force-pushed\n", out.BaseTag)
	if out.ArchivedPath != "" {
		fmt.Fprintf(stdout, "  Archived previous package to %s\n", out.ArchivedPath)
	}
}
