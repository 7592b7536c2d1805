package timeline

import (
	"errors"

	"ocingest/internal/eventlog"
)

// ErrEmptyLog is returned when a log has no events to derive a timeline from.
var ErrEmptyLog = errors.New("event log has no events")

// Bounds is the absolute span of a session in epoch milliseconds.
type Bounds struct {
	StartEpochMs int64
	EndEpochMs   int64
}

// DurationMs returns the session length.
func (b Bounds) DurationMs() int64 { return b.EndEpochMs - b.StartEpochMs }

// Relative converts an absolute timestamp to an offset from session start.
func (b Bounds) Relative(ts int64) int64 { return ts - b.StartEpochMs }

// Interval is a span during which capture was active, in epoch milliseconds.
type Interval struct {
	StartMs int64
	StopMs  int64
	// Implicit marks an interval closed at session end because no stop
	// marker followed its start.
	Implicit bool
	// Clamped marks an interval whose paired stop preceded its start; the
	// stop was moved up to the start.
	Clamped bool
}

// DurationMs returns the interval length.
func (i Interval) DurationMs() int64 { return i.StopMs - i.StartMs }

// Contains reports whether ts lies within the interval, bounds inclusive.
func (i Interval) Contains(ts int64) bool { return ts >= i.StartMs && ts <= i.StopMs }

// FullSession returns one interval spanning the whole session.
func FullSession(bounds Bounds) Interval {
	return Interval{StartMs: bounds.StartEpochMs, StopMs: bounds.EndEpochMs}
}

// DeriveSessionBounds computes session start from the creation epoch embedded
// in the meeting identifier and session end from the spread between the
// earliest and latest event timestamps.
func DeriveSessionBounds(log *eventlog.Log) (Bounds, error) {
	if log == nil || len(log.Events) == 0 {
		return Bounds{}, ErrEmptyLog
	}
	start, err := eventlog.CreationEpoch(log.MeetingID)
	if err != nil {
		return Bounds{}, err
	}
	first, last := log.Events[0].TimestampUTC, log.Events[0].TimestampUTC
	for _, evt := range log.Events[1:] {
		if evt.TimestampUTC < first {
			first = evt.TimestampUTC
		}
		if evt.TimestampUTC > last {
			last = evt.TimestampUTC
		}
	}
	return Bounds{StartEpochMs: start, EndEpochMs: start + (last - first)}, nil
}

// Pairing is the detailed result of pairing record-status markers.
type Pairing struct {
	Intervals []Interval
	Opens     int
	Closes    int
	// DiscardedCloses counts stop markers seen while no interval was open.
	DiscardedCloses int
}

// BuildRecordingIntervals pairs record-status events into intervals. See
// PairRecordStatus.
func BuildRecordingIntervals(events []eventlog.Event, bounds Bounds) []Interval {
	return PairRecordStatus(events, bounds).Intervals
}

// PairRecordStatus scans record-status events in stored order. A start marker
// opens an interval; a stop marker closes the earliest still-open one. Stops
// with nothing open are discarded. Every start left open when the scan ends is
// closed at bounds.EndEpochMs, so the interval count always equals the number
// of start markers. Intervals are returned in the order their starts were
// encountered and never have a negative duration.
func PairRecordStatus(events []eventlog.Event, bounds Bounds) Pairing {
	var result Pairing
	// pending holds indexes into result.Intervals that still await a stop.
	var pending []int

	for _, evt := range eventlog.FilterByKind(events, eventlog.KindRecordStatus) {
		if evt.RecordingOn() {
			result.Opens++
			result.Intervals = append(result.Intervals, Interval{StartMs: evt.TimestampUTC})
			pending = append(pending, len(result.Intervals)-1)
			continue
		}
		result.Closes++
		if len(pending) == 0 {
			result.DiscardedCloses++
			continue
		}
		result.Intervals[pending[0]].StopMs = evt.TimestampUTC
		pending = pending[1:]
	}
	for _, slot := range pending {
		result.Intervals[slot].StopMs = bounds.EndEpochMs
		result.Intervals[slot].Implicit = true
	}
	for i := range result.Intervals {
		if result.Intervals[i].StopMs < result.Intervals[i].StartMs {
			result.Intervals[i].StopMs = result.Intervals[i].StartMs
			result.Intervals[i].Clamped = true
		}
	}
	return result
}
