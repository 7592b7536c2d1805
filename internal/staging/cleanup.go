package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ocingest/internal/logging"
	"ocingest/internal/services"
)

var commandContext = exec.CommandContext

// DeleteRaw runs the configured delete command with the meeting id appended,
// asking the conferencing server to remove its raw recording.
func DeleteRaw(ctx context.Context, command []string, meetingID string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(command) == 0 {
		return services.Wrap(services.ErrConfiguration, "cleanup", "delete raw", "delete command is empty", nil)
	}
	if strings.TrimSpace(meetingID) == "" {
		return services.Wrap(services.ErrValidation, "cleanup", "delete raw", "meeting id is empty", nil)
	}

	args := append(append([]string{}, command[1:]...), meetingID)
	cmd := commandContext(ctx, command[0], args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logging.WarnWithContext(logger, "raw recording deletion failed", "raw_delete_failed",
			logging.String("command", strings.Join(command, " ")),
			logging.String("output", strings.TrimSpace(string(output))),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check sudo rules for the delete command"),
			logging.String(logging.FieldImpact, "raw recording kept on disk"),
		)
		return services.Wrap(services.ErrExternalTool, "cleanup", "delete raw", fmt.Sprintf("%s exited with error", command[0]), err)
	}
	logger.Info("raw recording deleted",
		logging.String("command", strings.Join(command, " ")),
		logging.String(logging.FieldEventType, "raw_delete"),
	)
	return nil
}

// CleanStaleResult contains the outcome of a stale scratch cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes scratch directories named scratchName below each meeting
// directory in rawDir when they are older than maxAge. Scratch output left
// behind by failed runs accumulates here.
func CleanStale(ctx context.Context, rawDir, scratchName string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	rawDir = strings.TrimSpace(rawDir)
	scratchName = strings.TrimSpace(scratchName)
	if rawDir == "" || scratchName == "" {
		return result
	}

	entries, err := os.ReadDir(rawDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: rawDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: rawDir, Error: ctx.Err()})
			return result
		}
		if !entry.IsDir() {
			continue
		}
		scratch := filepath.Join(rawDir, entry.Name(), scratchName)
		info, err := os.Stat(scratch)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				result.Errors = append(result.Errors, CleanupError{Path: scratch, Error: err})
			}
			continue
		}
		if !info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(scratch); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: scratch, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale scratch directory", "scratch_cleanup_failed",
				logging.String("path", scratch),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check raw_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, scratch)
		logger.Info("removed stale scratch directory",
			logging.String("path", scratch),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "scratch_cleanup"),
		)
	}
	return result
}
