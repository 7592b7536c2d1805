package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ocingest/internal/logging"
	"ocingest/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [meeting-id]",
		Short: "Show the shared log or one recording's run log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.MainLogPath(cfg)
			if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
				path = logging.RunLogPath(cfg, strings.TrimSpace(args[0]))
			}

			out := cmd.OutOrStdout()
			chunk, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			if len(chunk.Lines) == 0 && !follow {
				fmt.Fprintf(out, "No log entries at %s\n", path)
				return nil
			}
			emit := func(batch []string) error {
				for _, line := range batch {
					if _, err := fmt.Fprintln(out, line); err != nil {
						return err
					}
				}
				return nil
			}
			if err := emit(chunk.Lines); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, chunk.Offset, 250*time.Millisecond, emit)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
