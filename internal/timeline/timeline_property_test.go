package timeline_test

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"ocingest/internal/eventlog"
	"ocingest/internal/timeline"
)

// TestSessionBoundsOrdering verifies end never precedes start.
// Property: DeriveSessionBounds(log).EndEpochMs >= StartEpochMs
func TestSessionBoundsOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("end is never before start", prop.ForAll(
		func(start int64, stamps []int64) bool {
			if len(stamps) == 0 {
				return true
			}
			events := make([]eventlog.Event, len(stamps))
			for i, ts := range stamps {
				events[i] = other(ts)
			}
			log := &eventlog.Log{MeetingID: "meeting-" + strconv.FormatInt(start, 10), Events: events}
			bounds, err := timeline.DeriveSessionBounds(log)
			if err != nil {
				return false
			}
			return bounds.EndEpochMs >= bounds.StartEpochMs && bounds.StartEpochMs == start
		},
		gen.Int64Range(0, 4_000_000_000_000),
		gen.SliceOf(gen.Int64Range(0, 4_000_000_000_000)),
	))

	properties.TestingRun(t)
}

// TestRecordingIntervalShape verifies every interval is non-negative and that
// one interval exists per start marker.
func TestRecordingIntervalShape(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("one non-negative interval per start marker", prop.ForAll(
		func(stamps []int64, states []bool, end int64) bool {
			n := len(stamps)
			if len(states) < n {
				n = len(states)
			}
			events := make([]eventlog.Event, 0, n)
			opens := 0
			for i := 0; i < n; i++ {
				events = append(events, status(stamps[i], states[i]))
				if states[i] {
					opens++
				}
			}
			bounds := timeline.Bounds{StartEpochMs: 0, EndEpochMs: end}
			intervals := timeline.BuildRecordingIntervals(events, bounds)
			if len(intervals) != opens {
				return false
			}
			for _, iv := range intervals {
				if iv.StopMs < iv.StartMs {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 1_000_000)),
		gen.SliceOf(gen.Bool()),
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}
