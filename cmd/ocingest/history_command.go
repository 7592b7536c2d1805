package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ocingest/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [meeting-id]",
		Short: "List recorded archive runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meetingID := ""
			if len(args) > 0 {
				meetingID = args[0]
			}
			return ctx.withLedger(func(store *ledger.Store) error {
				runs, err := store.List(cmd.Context(), meetingID, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Meeting", "Status", "Tracks", "Workflow", "Started", "Duration"},
					historyRows(runs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
				))
				if meetingID == "" {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(out, summarizeStats(stats))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func historyRows(runs []ledger.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.Duration().Round(time.Second).String()
		}
		status := string(run.Status)
		if run.Detail != "" && run.Status != ledger.StatusIngested && run.Status != ledger.StatusSucceeded {
			status += " (" + truncate(run.Detail, 48) + ")"
		}
		rows = append(rows, []string{
			strconv.FormatInt(run.ID, 10),
			run.MeetingID,
			status,
			strconv.Itoa(run.TrackCount),
			dashIfEmpty(run.WorkflowID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
		})
	}
	return rows
}

func summarizeStats(stats map[ledger.Status]int) string {
	keys := make([]string, 0, len(stats))
	for status := range stats {
		keys = append(keys, string(status))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, stats[ledger.Status(key)]))
	}
	return "Totals: " + strings.Join(parts, " ")
}
