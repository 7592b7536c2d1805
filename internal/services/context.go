package services

import "context"

type contextKey string

const (
	meetingIDKey contextKey = "meeting_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func valueOf(ctx context.Context, key contextKey) (string, bool) {
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithMeetingID tags ctx with the meeting being archived.
func WithMeetingID(ctx context.Context, id string) context.Context {
	return withValue(ctx, meetingIDKey, id)
}

// MeetingIDFromContext returns the meeting tag, if any.
func MeetingIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, meetingIDKey) }

// WithStage tags ctx with the archive stage currently running.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage tag, if any.
func StageFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, stageKey) }

// WithRequestID tags ctx with the run's correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation id, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) { return valueOf(ctx, requestIDKey) }
