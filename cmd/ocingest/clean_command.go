package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ocingest/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch workspaces left behind by failed runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.RawDir, cfg.Paths.ScratchName, olderThan, ctx.loggerValue())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d scratch workspace(s)\n", len(result.Removed))
			for _, dir := range result.Removed {
				fmt.Fprintf(out, "  %s\n", dir)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("failed to remove %d workspace(s)", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Only remove workspaces not modified for this long")
	return cmd
}
