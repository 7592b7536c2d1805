package archiver

import (
	"context"
	"log/slog"

	"ocingest/internal/logging"
	"ocingest/internal/staging"
)

// cleanup removes the scratch workspace and, when enabled, asks the
// conferencing server to delete the raw recording. A delete failure keeps the
// run's status but is returned so the caller exits non-zero.
func (a *Archiver) cleanup(ctx context.Context, workspace *staging.Workspace, meetingID string, report *Report, logger *slog.Logger) error {
	logger = stageLogger(ctx, logger)
	if err := workspace.Cleanup(); err != nil {
		logging.WarnWithContext(logger, "failed to remove scratch workspace", "scratch_cleanup_failed",
			logging.String("dir", workspace.Dir()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "scratch files remain on disk"),
		)
	}
	if !a.cfg.Cleanup.Enabled {
		return nil
	}
	if err := a.deleteRaw(ctx, a.cfg.Cleanup.DeleteCommand, meetingID, logger); err != nil {
		report.CleanupFailed = true
		return err
	}
	logger.Info("raw recording deleted", logging.String(logging.FieldEventType, "raw_deleted"))
	return nil
}
