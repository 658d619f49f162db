// Package cli: show.go implements the "patchqueue show" command.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewShowCommand creates the "show" cobra command.
func NewShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the queue configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow()
		},
	}
}

func runShow() error {
	cfg, err := loadQueue()
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		printJSON(cfg)
		return nil
	}

	fmt.Fprintf(stdout, "Remote:   %s\n", cfg.RemoteRepo)
	fmt.Fprintf(stdout, "Mirror:   %s\n", cfg.BaseRepo)
	fmt.Fprintf(stdout, "Base tag: %s\n", cfg.BaseTag)
	if cfg.Package != "" {
		fmt.Fprintf(stdout, "Package:  %s\n", cfg.Package)
	}
	if len(cfg.Components) > 0 {
		fmt.Fprintf(stdout, "Components: %s\n", strings.Join(cfg.Components, ", "))
	}
	if len(cfg.SDVComponents) > 0 {
		fmt.Fprintf(stdout, "SDV components: %s\n", strings.Join(cfg.SDVComponents, ", "))
	}
	fmt.Fprintf(stdout, "Patches (%d):\n", len(cfg.PatchList))
	for i, p := range cfg.PatchList {
		fmt.Fprintf(stdout, "  %3d  %s\n", i+1, p)
	}
	return nil
}
