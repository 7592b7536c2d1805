package ledger

import "time"

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusIngested  Status = "ingested"
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s != StatusRunning && s != ""
}

// Run is one archive attempt for a meeting.
type Run struct {
	ID             int64
	MeetingID      string
	MediaPackageID string
	WorkflowID     string
	Status         Status
	Detail         string
	TrackCount     int
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// Duration returns the elapsed time of a finished run, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome captures the terminal fields written by Finish.
type Outcome struct {
	Status         Status
	MediaPackageID string
	WorkflowID     string
	Detail         string
	TrackCount     int
}
