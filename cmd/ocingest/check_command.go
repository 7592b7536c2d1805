package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ocingest/internal/preflight"
	"ocingest/internal/services/opencast"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, external tools, and Opencast access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var checker preflight.UserChecker
			if !offline {
				client, err := opencast.NewFromConfig(cfg, ctx.loggerValue())
				if err != nil {
					return err
				}
				checker = client
			}

			results := preflight.RunAll(cmd.Context(), cfg, checker)
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}
			for _, r := range results {
				fmt.Fprintln(out, renderCheckLine(r.Name, r.Passed, r.Detail, colorize))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the Opencast connectivity check")
	return cmd
}
