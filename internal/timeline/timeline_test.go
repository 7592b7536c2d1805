package timeline_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocingest/internal/eventlog"
	"ocingest/internal/timeline"
)

const epoch = int64(1600000000000)

func status(ts int64, on bool) eventlog.Event {
	value := "false"
	if on {
		value = "true"
	}
	return eventlog.Event{
		Kind:         eventlog.KindRecordStatus,
		TimestampUTC: ts,
		Attributes:   map[string]string{eventlog.AttrStatus: value},
	}
}

func other(ts int64) eventlog.Event {
	return eventlog.Event{Kind: eventlog.KindParticipantJoined, TimestampUTC: ts}
}

func TestDeriveSessionBoundsUsesCreationEpochAndSpread(t *testing.T) {
	log := &eventlog.Log{
		MeetingID: "abc-1600000000000",
		Events:    []eventlog.Event{other(9000), other(1000), other(31000), other(5000)},
	}
	bounds, err := timeline.DeriveSessionBounds(log)
	require.NoError(t, err)
	assert.Equal(t, epoch, bounds.StartEpochMs)
	assert.Equal(t, epoch+30000, bounds.EndEpochMs)
	assert.Equal(t, int64(30000), bounds.DurationMs())
	assert.Equal(t, int64(500), bounds.Relative(epoch+500))
}

func TestDeriveSessionBoundsErrors(t *testing.T) {
	_, err := timeline.DeriveSessionBounds(&eventlog.Log{MeetingID: "abc-1"})
	assert.True(t, errors.Is(err, timeline.ErrEmptyLog))

	_, err = timeline.DeriveSessionBounds(nil)
	assert.True(t, errors.Is(err, timeline.ErrEmptyLog))

	_, err = timeline.DeriveSessionBounds(&eventlog.Log{MeetingID: "no-epoch-here", Events: []eventlog.Event{other(1)}})
	var mErr *eventlog.MalformedLogError
	assert.True(t, errors.As(err, &mErr))
}

func TestBuildRecordingIntervalsPairsOpenAndClose(t *testing.T) {
	bounds := timeline.Bounds{StartEpochMs: epoch, EndEpochMs: epoch + 60000}
	events := []eventlog.Event{
		other(epoch),
		status(epoch+5000, true),
		status(epoch+15000, false),
	}
	got := timeline.BuildRecordingIntervals(events, bounds)
	require.Equal(t, []timeline.Interval{{StartMs: epoch + 5000, StopMs: epoch + 15000}}, got)
}

func TestBuildRecordingIntervalsTwoOpensOneClose(t *testing.T) {
	bounds := timeline.Bounds{StartEpochMs: epoch, EndEpochMs: epoch + 60000}
	events := []eventlog.Event{
		status(epoch+1000, true),
		status(epoch+2000, true),
		status(epoch+3000, false),
	}
	got := timeline.BuildRecordingIntervals(events, bounds)
	require.Len(t, got, 2)
	assert.Equal(t, epoch+1000, got[0].StartMs)
	assert.Equal(t, epoch+3000, got[0].StopMs)
	assert.Equal(t, epoch+2000, got[1].StartMs)
	assert.Equal(t, bounds.EndEpochMs, got[1].StopMs)
	assert.True(t, got[1].Implicit)
}

func TestBuildRecordingIntervalsDiscardsUnmatchedClose(t *testing.T) {
	bounds := timeline.Bounds{StartEpochMs: epoch, EndEpochMs: epoch + 60000}
	events := []eventlog.Event{
		status(epoch+500, false),
		status(epoch+1000, true),
		status(epoch+4000, false),
		status(epoch+9000, false),
	}
	pairing := timeline.PairRecordStatus(events, bounds)
	assert.Equal(t, 1, pairing.Opens)
	assert.Equal(t, 3, pairing.Closes)
	assert.Equal(t, 2, pairing.DiscardedCloses)
	assert.Equal(t, []timeline.Interval{{StartMs: epoch + 1000, StopMs: epoch + 4000}}, pairing.Intervals)
}

func TestBuildRecordingIntervalsNoMarkers(t *testing.T) {
	bounds := timeline.Bounds{StartEpochMs: epoch, EndEpochMs: epoch + 60000}
	assert.Empty(t, timeline.BuildRecordingIntervals([]eventlog.Event{other(epoch)}, bounds))
	assert.Equal(t, timeline.Interval{StartMs: epoch, StopMs: epoch + 60000}, timeline.FullSession(bounds))
}

// Stored order and chronological order diverge: the stop is logged after the
// start but carries an earlier timestamp. Pairing keeps stored order and the
// resulting negative span is clamped to zero length.
func TestBuildRecordingIntervalsClampsOutOfOrderPair(t *testing.T) {
	bounds := timeline.Bounds{StartEpochMs: epoch, EndEpochMs: epoch + 60000}
	events := []eventlog.Event{
		status(epoch+8000, true),
		status(epoch+3000, false),
	}
	got := timeline.BuildRecordingIntervals(events, bounds)
	require.Len(t, got, 1)
	assert.Equal(t, epoch+8000, got[0].StartMs)
	assert.Equal(t, epoch+8000, got[0].StopMs)
	assert.True(t, got[0].Clamped)
	assert.Zero(t, got[0].DurationMs())
}

func TestIntervalContainsIsInclusive(t *testing.T) {
	iv := timeline.Interval{StartMs: 10, StopMs: 20}
	assert.True(t, iv.Contains(10))
	assert.True(t, iv.Contains(20))
	assert.False(t, iv.Contains(21))
	assert.False(t, iv.Contains(9))
}
