package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ocingest/internal/archiver"
	"ocingest/internal/logging"
)

type inspectTrack struct {
	Flavor  string `json:"flavor"`
	Source  string `json:"source"`
	StartMs int64  `json:"start_ms"`
	Path    string `json:"path"`
}

type inspectRejection struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type inspectInterval struct {
	BeginMs    int64 `json:"begin_ms"`
	DurationMs int64 `json:"duration_ms"`
	Implicit   bool  `json:"implicit,omitempty"`
	Clamped    bool  `json:"clamped,omitempty"`
}

type inspectView struct {
	MeetingID         string             `json:"meeting_id"`
	SessionStart      time.Time          `json:"session_start"`
	DurationMs        int64              `json:"duration_ms"`
	ImplicitRecording bool               `json:"implicit_recording"`
	Intervals         []inspectInterval  `json:"intervals"`
	Tracks            []inspectTrack     `json:"tracks"`
	Rejected          []inspectRejection `json:"rejected"`
	Catalog           map[string]string  `json:"catalog,omitempty"`
	ACLRules          int                `json:"acl_rules"`
	SeriesID          string             `json:"series_id,omitempty"`
	Captions          int                `json:"captions"`
	Skipped           string             `json:"skipped,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var meetingID string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect [meeting-id]",
		Short: "Show what would be ingested for a recording without uploading",
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
			a, err := archiver.NewFromConfig(cfg, nil, nil, nil, logging.NewNop())
			if err != nil {
				return err
			}
			plan, err := a.Inspect(cmd.Context(), id)
			skipped := ""
			if errors.Is(err, archiver.ErrNothingToIngest) {
				skipped = err.Error()
				err = nil
			}
			if err != nil {
				return err
			}

			view := buildInspectView(plan, skipped)
			if jsonOutput {
				return writeJSON(cmd, view)
			}
			printInspectView(cmd, view)
			return nil
		},
	}

	cmd.Flags().StringVar(&meetingID, "meeting-id", "", "Internal meeting id of the recording")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func buildInspectView(plan *archiver.Plan, skipped string) inspectView {
	view := inspectView{
		MeetingID:         plan.MeetingID,
		SessionStart:      time.UnixMilli(plan.Bounds.StartEpochMs).UTC(),
		DurationMs:        plan.Bounds.DurationMs(),
		ImplicitRecording: plan.ImplicitRecording,
		ACLRules:          len(plan.EpisodeACL),
		SeriesID:          plan.SeriesID,
		Skipped:           skipped,
	}
	for _, iv := range plan.Intervals {
		view.Intervals = append(view.Intervals, inspectInterval{
			BeginMs:    plan.Bounds.Relative(iv.StartMs),
			DurationMs: iv.DurationMs(),
			Implicit:   iv.Implicit,
			Clamped:    iv.Clamped,
		})
	}
	for _, track := range plan.Tracks {
		view.Tracks = append(view.Tracks, inspectTrack{
			Flavor:  string(track.Flavor),
			Source:  string(track.Source),
			StartMs: track.StartTimeMs,
			Path:    track.Path,
		})
	}
	for _, r := range plan.Rejected {
		view.Rejected = append(view.Rejected, inspectRejection{
			Path:   r.Candidate.Path,
			Reason: r.Reason,
			Detail: r.Detail,
		})
	}
	if entries := plan.Catalog.Entries(); len(entries) > 0 {
		view.Catalog = make(map[string]string, len(entries))
		for _, e := range entries {
			view.Catalog[e.Term] = e.Value
		}
	}
	if plan.Captions != nil {
		view.Captions = len(plan.Captions.Cues)
	}
	return view
}

func printInspectView(cmd *cobra.Command, view inspectView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Meeting:   %s\n", view.MeetingID)
	fmt.Fprintf(out, "Started:   %s\n", view.SessionStart.Format(time.RFC3339))
	fmt.Fprintf(out, "Duration:  %s\n", time.Duration(view.DurationMs)*time.Millisecond)
	fmt.Fprintf(out, "Recorded:  %d interval(s) (implicit: %s)\n", len(view.Intervals), yesNo(view.ImplicitRecording))

	if len(view.Intervals) > 0 {
		rows := make([][]string, 0, len(view.Intervals))
		for _, iv := range view.Intervals {
			rows = append(rows, []string{
				strconv.FormatInt(iv.BeginMs, 10),
				strconv.FormatInt(iv.DurationMs, 10),
				yesNo(iv.Implicit),
				yesNo(iv.Clamped),
			})
		}
		fmt.Fprintln(out, renderTable([]string{"Begin (ms)", "Duration (ms)", "Open-ended", "Clamped"}, rows,
			[]columnAlignment{alignRight, alignRight}))
	}

	if len(view.Tracks) > 0 {
		rows := make([][]string, 0, len(view.Tracks))
		for _, track := range view.Tracks {
			rows = append(rows, []string{track.Flavor, track.Source, strconv.FormatInt(track.StartMs, 10), filepath.Base(track.Path)})
		}
		fmt.Fprintln(out, renderTable([]string{"Flavor", "Source", "Start (ms)", "File"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight}))
	}

	if len(view.Rejected) > 0 {
		rows := make([][]string, 0, len(view.Rejected))
		for _, r := range view.Rejected {
			rows = append(rows, []string{filepath.Base(r.Path), r.Reason, r.Detail})
		}
		fmt.Fprintln(out, renderTable([]string{"Rejected", "Reason", "Detail"}, rows, nil))
	}

	fmt.Fprintf(out, "ACL rules: %d\n", view.ACLRules)
	if view.SeriesID != "" {
		fmt.Fprintf(out, "Series:    %s\n", view.SeriesID)
	}
	if view.Captions > 0 {
		fmt.Fprintf(out, "Captions:  %d cue(s)\n", view.Captions)
	}
	if view.Skipped != "" {
		fmt.Fprintf(out, "Nothing to ingest: %s\n", view.Skipped)
	}
}
