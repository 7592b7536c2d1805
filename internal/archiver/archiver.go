package archiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"ocingest/internal/config"
	"ocingest/internal/ledger"
	"ocingest/internal/logging"
	"ocingest/internal/media/ffprobe"
	"ocingest/internal/media/transcode"
	"ocingest/internal/metrics"
	"ocingest/internal/services"
	"ocingest/internal/services/opencast"
	"ocingest/internal/staging"
	"ocingest/internal/tracks"
)

// ErrNothingToIngest reports a recording with no recording intervals under
// the record-button policy or with no valid tracks. It is a successful no-op.
var ErrNothingToIngest = errors.New("nothing to ingest")

// Remote is the subset of the Opencast API a run uses.
type Remote interface {
	CreateMediaPackage(ctx context.Context, id string) (opencast.MediaPackage, error)
	AddPartialTrack(ctx context.Context, mp opencast.MediaPackage, flavor string, startTimeMs int64, path string) (opencast.MediaPackage, error)
	AddDCCatalog(ctx context.Context, mp opencast.MediaPackage, dublinCore []byte) (opencast.MediaPackage, error)
	AddCatalog(ctx context.Context, mp opencast.MediaPackage, flavor, path string) (opencast.MediaPackage, error)
	AddAttachment(ctx context.Context, mp opencast.MediaPackage, flavor, path string) (opencast.MediaPackage, error)
	Ingest(ctx context.Context, mp opencast.MediaPackage, workflow string) (opencast.IngestResult, error)
	EventExists(ctx context.Context, id string) (bool, error)
	FetchSeriesCatalog(ctx context.Context) ([]opencast.Series, error)
	FetchSeriesACL(ctx context.Context, id string) (*etree.Document, error)
	CreateSeries(ctx context.Context, dublinCore, acl []byte) error
	UpdateSeriesACL(ctx context.Context, id string, acl []byte) error
}

// Waiter blocks until an ingested workflow finishes.
type Waiter interface {
	Wait(ctx context.Context, result opencast.IngestResult) error
}

// MediaTools are the per-recording media collaborators. A nil Preparer
// leaves video paths untouched; a nil Slides drops slide candidates.
type MediaTools struct {
	Checker  tracks.IntegrityChecker
	Preparer tracks.Preparer
	Slides   tracks.SlideRenderer
}

// MediaFactory builds media tools for one recording layout.
type MediaFactory func(layout tracks.Layout, logger *slog.Logger) MediaTools

// RawDeleter removes the raw recording after a successful run.
type RawDeleter func(ctx context.Context, command []string, meetingID string, logger *slog.Logger) error

// Dependencies wires an Archiver. Ledger, Metrics, Pusher, and Monitor are
// optional.
type Dependencies struct {
	Remote    Remote
	Media     MediaFactory
	Ledger    *ledger.Store
	Metrics   *metrics.Metrics
	Pusher    *metrics.Pusher
	Monitor   Waiter
	DeleteRaw RawDeleter
	Logger    *slog.Logger
	// NewID generates package identifiers. Defaults to uuid.NewString.
	NewID func() string
}

// Archiver runs archive and inspect operations for one configuration.
type Archiver struct {
	cfg       *config.Config
	remote    Remote
	media     MediaFactory
	ledger    *ledger.Store
	metrics   *metrics.Metrics
	pusher    *metrics.Pusher
	monitor   Waiter
	deleteRaw RawDeleter
	newID     func() string
	logger    *slog.Logger
}

// New constructs an Archiver from explicit dependencies.
func New(cfg *config.Config, deps Dependencies) (*Archiver, error) {
	if cfg == nil {
		return nil, errors.New("archiver: config is required")
	}
	if deps.Remote == nil {
		return nil, errors.New("archiver: opencast client is required")
	}
	a := &Archiver{
		cfg:       cfg,
		remote:    deps.Remote,
		media:     deps.Media,
		ledger:    deps.Ledger,
		metrics:   deps.Metrics,
		pusher:    deps.Pusher,
		monitor:   deps.Monitor,
		deleteRaw: deps.DeleteRaw,
		newID:     deps.NewID,
		logger:    logging.NewComponentLogger(deps.Logger, "archiver"),
	}
	if a.media == nil {
		a.media = DefaultMedia(cfg)
	}
	if a.deleteRaw == nil {
		a.deleteRaw = staging.DeleteRaw
	}
	if a.newID == nil {
		a.newID = uuid.NewString
	}
	return a, nil
}

// NewFromConfig wires the production collaborators: the Opencast client, the
// ffprobe/ffmpeg media tools, and a workflow monitor when enabled. The caller
// owns the ledger and metrics.
func NewFromConfig(cfg *config.Config, store *ledger.Store, m *metrics.Metrics, pusher *metrics.Pusher, logger *slog.Logger) (*Archiver, error) {
	client, err := opencast.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	deps := Dependencies{
		Remote:  client,
		Ledger:  store,
		Metrics: m,
		Pusher:  pusher,
		Logger:  logger,
	}
	if cfg.Monitor.Enabled {
		deps.Monitor = opencast.NewMonitor(client, cfg.MonitorInterval(), cfg.MonitorBudget(), logger)
	}
	return New(cfg, deps)
}

// DefaultMedia returns the ffprobe and ffmpeg backed media tools.
func DefaultMedia(cfg *config.Config) MediaFactory {
	return func(layout tracks.Layout, logger *slog.Logger) MediaTools {
		prober := ffprobe.NewProber(cfg.Media.FFprobe)
		normalizer := transcode.NewNormalizer(transcode.Options{
			FFmpeg:     cfg.Media.FFmpeg,
			FrameRate:  cfg.Media.FrameRate,
			SourceRoot: layout.Root,
			OutputRoot: layout.TranscodeDir(),
			Reuse:      cfg.Ingest.ReuseConverted,
		}, prober, logger)
		var rasterizer transcode.Rasterizer = transcode.ImageMagickRasterizer{Binary: cfg.Media.ImageMagick}
		if cfg.Media.Rasterizer == config.RasterizerBuiltin {
			rasterizer = transcode.BuiltinRasterizer{}
		}
		slides := transcode.NewSlideRenderer(cfg.Media.FFmpeg, cfg.Media.FrameRate, layout.SlidesDir(), rasterizer, logger)
		return MediaTools{Checker: prober, Preparer: normalizer, Slides: slides}
	}
}

// Report summarizes a finished run.
type Report struct {
	MeetingID      string
	Plan           *Plan
	MediaPackageID string
	Ingest         opencast.IngestResult
	Status         ledger.Status
	SeriesAction   string
	CleanupFailed  bool
	Duration       time.Duration
}

// Run archives one meeting. It returns ErrNothingToIngest, after cleaning up,
// when the recording has nothing to send.
func (a *Archiver) Run(ctx context.Context, meetingID string) (*Report, error) {
	meetingID = strings.TrimSpace(meetingID)
	if meetingID == "" {
		return nil, services.Wrap(services.ErrValidation, "archive", "start", "meeting id is required", nil)
	}
	started := time.Now()
	ctx = services.WithMeetingID(ctx, meetingID)
	ctx = services.WithRequestID(ctx, uuid.NewString())

	runLogger, closer, err := logging.NewRunLogger(a.logger, a.cfg, meetingID)
	if err != nil {
		logging.WarnWithContext(a.logger, "run log unavailable", "run_log_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run is only logged to the main log"),
		)
		runLogger = a.logger
	} else {
		defer closer.Close()
	}
	logger := logging.WithContext(ctx, runLogger)

	lock, err := staging.AcquireLock(a.cfg.LockDir(), meetingID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(logger, "failed to release meeting lock", "lock_release_failed",
				logging.String("lock", lock.Path()),
				logging.Error(err),
			)
		}
	}()

	run := a.beginLedger(ctx, meetingID, logger)
	logger.Info("archive run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("raw_dir", a.cfg.RecordingDir(meetingID)),
	)

	report := &Report{MeetingID: meetingID}
	runErr := a.archive(ctx, meetingID, report, logger)
	report.Duration = time.Since(started)
	a.finish(ctx, run, report, runErr, logger)
	return report, runErr
}

func (a *Archiver) archive(ctx context.Context, meetingID string, report *Report, logger *slog.Logger) error {
	layout := tracks.NewLayout(a.cfg, meetingID)
	workspace := staging.NewWorkspace(layout.Scratch, logger)
	if err := workspace.Prepare(); err != nil {
		return services.Wrap(services.ErrConfiguration, "archive", "prepare scratch", layout.Scratch, err)
	}

	plan, err := a.buildPlan(withStage(ctx, "plan"), layout, a.media(layout, logger), logger)
	report.Plan = plan
	if errors.Is(err, ErrNothingToIngest) {
		logger.Info("nothing to ingest",
			logging.Args(logging.DecisionAttrs("ingest", "skipped", err.Error())...)...,
		)
		report.Status = ledger.StatusSkipped
		if cleanupErr := a.cleanup(withStage(ctx, "cleanup"), workspace, meetingID, report, logger); cleanupErr != nil {
			return cleanupErr
		}
		return err
	}
	if err != nil {
		return err
	}
	a.observePlan(plan)

	mpID, err := a.resolveIdentifier(withStage(ctx, "identifier"), plan, logger)
	if err != nil {
		return err
	}
	report.MediaPackageID = mpID

	files, err := writeDocuments(plan, layout)
	if err != nil {
		return err
	}

	if a.cfg.Ingest.CreateSeries {
		action, err := a.syncSeries(withStage(ctx, "series"), plan, logger)
		if err != nil {
			return err
		}
		report.SeriesAction = action
	}

	result, err := a.submit(withStage(ctx, "ingest"), plan, files, mpID, logger)
	if err != nil {
		return err
	}
	report.Ingest = result
	report.MediaPackageID = result.MediaPackageID
	report.Status = ledger.StatusIngested

	if a.monitor != nil {
		if err := a.monitor.Wait(withStage(ctx, "monitor"), result); err != nil {
			return err
		}
		report.Status = ledger.StatusSucceeded
	}

	return a.cleanup(withStage(ctx, "cleanup"), workspace, meetingID, report, logger)
}

func (a *Archiver) observePlan(plan *Plan) {
	for _, track := range plan.Tracks {
		a.metrics.ObserveTrack(string(track.Flavor))
	}
	for _, rejection := range plan.Rejected {
		a.metrics.ObserveDropped(rejection.Reason)
	}
}

func (a *Archiver) beginLedger(ctx context.Context, meetingID string, logger *slog.Logger) *ledger.Run {
	if a.ledger == nil {
		return nil
	}
	if n, err := a.ledger.MarkAbandoned(ctx, meetingID); err == nil && n > 0 {
		logger.Info("marked abandoned runs as failed", logging.Int64("runs", n))
	}
	run, err := a.ledger.Begin(ctx, meetingID)
	if err != nil {
		logging.WarnWithContext(logger, "failed to record run start", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
		return nil
	}
	return run
}

func (a *Archiver) finish(ctx context.Context, run *ledger.Run, report *Report, runErr error, logger *slog.Logger) {
	status := report.Status
	outcome := services.Outcome(runErr)
	detail := ""
	switch {
	case errors.Is(runErr, ErrNothingToIngest):
		status = ledger.StatusSkipped
		outcome = services.OutcomeSkipped
		detail = runErr.Error()
	case runErr != nil && report.CleanupFailed:
		detail = runErr.Error()
	case runErr != nil:
		status = ledger.StatusFailed
		detail = runErr.Error()
	}

	trackCount := 0
	if report.Plan != nil {
		trackCount = len(report.Plan.Tracks)
	}

	if runErr != nil && !errors.Is(runErr, ErrNothingToIngest) {
		logging.ErrorWithContext(logger, "archive run failed", "run_failed",
			logging.Error(runErr),
			logging.String("status", string(status)),
			logging.Duration("duration", report.Duration),
			logging.String(logging.FieldErrorHint, "local data kept; fix the cause and re-run"),
		)
	} else {
		logger.Info("archive run finished",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("status", string(status)),
			logging.String("media_package_id", report.MediaPackageID),
			logging.String("workflow_id", report.Ingest.WorkflowID),
			logging.Int("tracks", trackCount),
			logging.Duration("duration", report.Duration),
		)
	}

	a.metrics.ObserveRun(outcome, report.Duration)
	if err := a.pusher.Push(ctx, a.metrics); err != nil {
		logging.WarnWithContext(logger, "failed to push metrics", "metrics_push_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.pushgateway_url"),
			logging.String(logging.FieldImpact, "run metrics not exported"),
		)
	}

	if run == nil {
		return
	}
	if status == "" || status == ledger.StatusRunning {
		status = ledger.StatusFailed
	}
	err := a.ledger.Finish(ctx, run.ID, ledger.Outcome{
		Status:         status,
		MediaPackageID: report.MediaPackageID,
		WorkflowID:     report.Ingest.WorkflowID,
		Detail:         detail,
		TrackCount:     trackCount,
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record run outcome", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run left as running in history"),
		)
	}
}

func withStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}

func stageLogger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	return logging.WithContext(ctx, logger)
}

func describe(meetingID string, err error) string {
	return fmt.Sprintf("%s: %v", meetingID, err)
}
