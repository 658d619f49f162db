// Package cli implements the cobra-based CLI commands for patchqueue.
//
// Each subcommand (rebase, addpatch, clean, sdv, show) is defined in its
// own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/patchqueue/internal/model"
	"github.com/shinji-kodama/patchqueue/internal/queue"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// configPath is the queue file every subcommand reads.
	configPath string

	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose enables detailed logging output on stderr.
	verbose bool
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// stdout and stderr are swapped out by tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action. It only provides
// help text and global flags; the work is done by the subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "patchqueue",
		Short: "Maintain a git patch queue on top of a mirrored base",
		Long: `patchqueue keeps a patch queue in step with an upstream repository.

The queue file (patchqueue.yaml) records the upstream repository, the mirror
the queue is published against, the base tag the patches apply to, and the
ordered list of patch files.

  rebase    reset and force-push the mirror when the base tag has moved
  addpatch  append a patch to the queue and stage it
  clean     delete untracked files from the checkout
  sdv       run the static driver verifier build passes`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", queue.DefaultFile, "Path to the queue file (.yaml or .json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewRebaseCommand())
	rootCmd.AddCommand(NewAddPatchCommand())
	rootCmd.AddCommand(NewCleanCommand())
	rootCmd.AddCommand(NewSDVCommand())
	rootCmd.AddCommand(NewShowCommand())

	return rootCmd
}

// Execute runs the root command and exits the process with the code
// matching the returned error.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err)
		} else {
			printError(err.Error(), nil)
		}
		os.Exit(int(ExitCodeFor(err)))
	}
}

// ExitCodeFor maps an error returned by a subcommand to a process exit
// code. An explicit CLIError code wins; otherwise the tagged error type
// underneath decides.
func ExitCodeFor(err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}

	var (
		cliErr   *model.CLIError
		vcsErr   *model.VCSError
		fsErr    *model.FSError
		buildErr *model.BuildError
	)
	switch {
	case errors.As(err, &cliErr):
		return cliErr.Code
	case errors.Is(err, model.ErrDiverged):
		return model.ExitDiverged
	case errors.As(err, &vcsErr):
		return model.ExitGitError
	case errors.As(err, &buildErr):
		return model.ExitBuildError
	case errors.As(err, &fsErr):
		return model.ExitFilesystemError
	default:
		return model.ExitGeneralError
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(stderr, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(stderr, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(stderr, "Error: %s\n", message)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(stdout, string(data))
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadQueue reads the queue file named by --config.
func loadQueue() (*model.QueueConfig, error) {
	VerboseLog("Loading queue file %s", configPath)
	return queue.Load(configPath)
}
