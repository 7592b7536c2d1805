package archiver

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"ocingest/internal/acl"
	"ocingest/internal/captions"
	"ocingest/internal/cutmarks"
	"ocingest/internal/dublincore"
	"ocingest/internal/eventlog"
	"ocingest/internal/logging"
	"ocingest/internal/services"
	"ocingest/internal/timeline"
	"ocingest/internal/tracks"
)

// Plan is everything derived from a recording before anything is uploaded.
type Plan struct {
	MeetingID string
	Log       *eventlog.Log
	Bounds    timeline.Bounds
	Intervals []timeline.Interval
	// ImplicitRecording is set when no record-status events were present and
	// the whole session is treated as recorded.
	ImplicitRecording bool
	DiscardedCloses   int
	Candidates        int
	Tracks            []tracks.Track
	Rejected          []tracks.Rejection
	CutMarks          []cutmarks.Mark
	Captions          *captions.Document
	Catalog           dublincore.Catalog
	EpisodeACL        []acl.Rule
	SeriesID          string
	NotesPath         string
}

// Inspect builds the plan for a recording without converting media, rendering
// slides, contacting Opencast, or touching local data. Slide candidates are
// listed as rejected because they cannot be checked without rendering.
func (a *Archiver) Inspect(ctx context.Context, meetingID string) (*Plan, error) {
	ctx = services.WithMeetingID(ctx, meetingID)
	ctx = services.WithStage(ctx, "inspect")
	logger := logging.WithContext(ctx, a.logger)
	layout := tracks.NewLayout(a.cfg, meetingID)
	tools := a.media(layout, logger)
	tools.Preparer = nil
	tools.Slides = nil
	return a.buildPlan(ctx, layout, tools, logger)
}

func (a *Archiver) buildPlan(ctx context.Context, layout tracks.Layout, tools MediaTools, logger *slog.Logger) (*Plan, error) {
	logger = stageLogger(ctx, logger)
	log, err := eventlog.ParseFile(layout.EventsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "plan", "read events", layout.EventsPath(), err)
		}
		return nil, services.Wrap(services.ErrValidation, "plan", "parse events", layout.EventsPath(), err)
	}
	plan := &Plan{MeetingID: layout.MeetingID, Log: log}

	plan.Bounds, err = timeline.DeriveSessionBounds(log)
	if err != nil {
		return plan, services.Wrap(services.ErrValidation, "plan", "derive bounds", describe(layout.MeetingID, err), err)
	}

	pairing := timeline.PairRecordStatus(log.Events, plan.Bounds)
	plan.Intervals = pairing.Intervals
	plan.DiscardedCloses = pairing.DiscardedCloses
	if pairing.DiscardedCloses > 0 {
		logging.WarnWithContext(logger, "unmatched record stop markers ignored", "record_status_unmatched",
			logging.Int("discarded", pairing.DiscardedCloses),
			logging.String(logging.FieldImpact, "stop markers without a start do not shorten any interval"),
		)
	}
	if len(plan.Intervals) == 0 {
		if a.cfg.Ingest.OnlyIfRecordPressed {
			return plan, services.Wrap(ErrNothingToIngest, "plan", "intervals", "record button was never pressed", nil)
		}
		plan.Intervals = []timeline.Interval{timeline.FullSession(plan.Bounds)}
		plan.ImplicitRecording = true
		logger.Info("no record status events; treating whole session as recorded",
			logging.Args(logging.DecisionAttrs("recording_intervals", "full_session", "no record status events")...)...,
		)
	}

	sources := tracks.Gather(log, layout)
	plan.Candidates = sources.Count()
	if tools.Slides == nil {
		for _, slide := range sources.Slides {
			plan.Rejected = append(plan.Rejected, tracks.Rejection{
				Candidate: slide,
				Reason:    tracks.ReasonInvalid,
				Detail:    "slide not rendered",
			})
		}
	}

	validator := tracks.NewValidator(tools.Checker, tools.Preparer, a.cfg.Media.ProbeWorkers, logger)
	assembled, err := tracks.NewAssembler(validator, tools.Slides, logger).Assemble(ctx, sources, plan.Bounds)
	if err != nil {
		return plan, err
	}
	plan.Tracks = assembled.Tracks
	plan.Rejected = append(plan.Rejected, assembled.Rejected...)
	for _, rejection := range plan.Rejected {
		logger.Info("track candidate rejected",
			logging.String(logging.FieldEventType, "track_rejected"),
			logging.String("path", rejection.Candidate.Path),
			logging.String("reason", rejection.Reason),
			logging.String("detail", rejection.Detail),
		)
	}
	if len(plan.Tracks) == 0 {
		return plan, services.Wrap(ErrNothingToIngest, "plan", "tracks", "no valid tracks", nil)
	}

	plan.CutMarks = cutmarks.Build(plan.Intervals, plan.Bounds)
	if a.cfg.Ingest.SendChatCaptions {
		plan.Captions = captions.RenderChatOverlay(log.Events, plan.Intervals, plan.Bounds)
	}
	plan.Catalog = dublincore.Resolve(dublincore.EpisodeFields, dublincore.Inputs{
		Metadata:               log,
		Bounds:                 plan.Bounds,
		PassIdentifierAsSource: a.cfg.Ingest.PassIdentifierAsDCSource,
	})
	plan.EpisodeACL = acl.ParseRoles(log, acl.EpisodeKeys, a.cfg.ACL.EpisodeReadRoles, a.cfg.ACL.EpisodeWriteRoles)
	plan.SeriesID, _ = log.MetadataValue(dublincore.SeriesKey)
	if a.cfg.Ingest.SendSharedNotes && fileExists(layout.NotesPath()) {
		plan.NotesPath = layout.NotesPath()
	}

	logger.Info("ingest plan ready",
		logging.String(logging.FieldEventType, "plan_ready"),
		logging.Int("tracks", len(plan.Tracks)),
		logging.Int("rejected", len(plan.Rejected)),
		logging.Int("intervals", len(plan.Intervals)),
		logging.Int("acl_rules", len(plan.EpisodeACL)),
		logging.Bool("captions", plan.Captions != nil),
	)
	return plan, nil
}
