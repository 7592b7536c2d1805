package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const runColumns = "id, meeting_id, media_package_id, workflow_id, status, detail, track_count, started_at, finished_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                   Run
		status                string
		mpID, wfID, detail    sql.NullString
		tracks                sql.NullInt64
		startedAt, finishedAt sql.NullString
	)
	err := row.Scan(&run.ID, &run.MeetingID, &mpID, &wfID, &status, &detail, &tracks, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	run.MediaPackageID = mpID.String
	run.WorkflowID = wfID.String
	run.Status = Status(status)
	run.Detail = detail.String
	run.TrackCount = int(tracks.Int64)
	if t, err := parseTimeString(startedAt.String); err == nil {
		run.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := parseTimeString(finishedAt.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
