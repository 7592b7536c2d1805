package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ocingest/internal/archiver"
	"ocingest/internal/ledger"
	"ocingest/internal/logging"
	"ocingest/internal/metrics"
	"ocingest/internal/preflight"
	"ocingest/internal/services/opencast"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var meetingID string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "archive [meeting-id]",
		Short: "Ingest one finished recording into Opencast",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := meetingArg(cmd, meetingID, args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerValue()
			logging.PruneLogs(logger, cfg)

			if !skipPreflight {
				client, err := opencast.NewFromConfig(cfg, logger)
				if err != nil {
					return err
				}
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg, client)); len(failed) > 0 {
					parts := make([]string, 0, len(failed))
					for _, r := range failed {
						parts = append(parts, r.Name+": "+r.Detail)
					}
					return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
				}
			}

			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			a, err := archiver.NewFromConfig(cfg, store, metrics.New(), metrics.NewPusher(cfg, id), logger)
			if err != nil {
				return err
			}
			report, err := a.Run(cmd.Context(), id)
			out := cmd.OutOrStdout()
			if errors.Is(err, archiver.ErrNothingToIngest) {
				fmt.Fprintf(out, "Nothing to ingest for %s: %v\n", id, err)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Ingested %s as %s\n", id, report.MediaPackageID)
			fmt.Fprintf(out, "  Workflow:  %s (%s)\n", report.Ingest.WorkflowID, report.Status)
			fmt.Fprintf(out, "  Tracks:    %d\n", len(report.Plan.Tracks))
			if report.SeriesAction != "" {
				fmt.Fprintf(out, "  Series:    %s (%s)\n", report.Plan.SeriesID, report.SeriesAction)
			}
			fmt.Fprintf(out, "  Duration:  %s\n", report.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting-id", "", "Internal meeting id of the recording")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory, tool, and Opencast checks")
	return cmd
}
