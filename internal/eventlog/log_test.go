package eventlog_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocingest/internal/eventlog"
	"ocingest/internal/testsupport"
)

const meetingID = "183f0bf3a0982a127bdb8161e0c44eb696b3e75c-1600000000000"

func TestParseReadsMeetingMetadataAndEvents(t *testing.T) {
	rec := testsupport.NewRecording(t, meetingID).
		Meta("meetingName", "Weekly sync").
		Meta("Opencast-DC-Title", "Lecture 1").
		Event("ParticipantJoinEvent", 1600000000100).
		Event("RecordStatusEvent", 1600000005000, "status", "true").
		Event("StartWebRTCShareEvent", 1600000006000, "filename", "/var/kurento/recordings/"+meetingID+"/cam.webm").
		Event("PublicChatEvent", 1600000007000, "sender", "Ada", "message", "hello & welcome")

	log, err := eventlog.Parse(strings.NewReader(rec.XML()))
	require.NoError(t, err)

	assert.Equal(t, meetingID, log.MeetingID)
	require.Len(t, log.Events, 4)

	title, ok := log.MetadataValue("opencast-dc-title")
	assert.True(t, ok)
	assert.Equal(t, "Lecture 1", title)
	title, ok = log.MetadataValue("OPENCAST-DC-TITLE")
	assert.True(t, ok)
	assert.Equal(t, "Lecture 1", title)

	webcam := log.Kind(eventlog.KindWebcamShareStarted)
	require.Len(t, webcam, 1)
	assert.Equal(t, int64(1600000006000), webcam[0].TimestampUTC)
	assert.Equal(t, "cam.webm", webcam[0].Filename())
	assert.Equal(t, "WEBCAM", webcam[0].Module)
	assert.Equal(t, 2, webcam[0].Seq)

	chat := log.Kind(eventlog.KindPublicChat)
	require.Len(t, chat, 1)
	assert.Equal(t, "hello & welcome", chat[0].Attr(eventlog.AttrMessage))

	status := log.Kind(eventlog.KindRecordStatus)
	require.Len(t, status, 1)
	assert.True(t, status[0].RecordingOn())
}

func TestParseMissingMetadataIsAbsent(t *testing.T) {
	rec := testsupport.NewRecording(t, meetingID).Meta("opencast-dc-creator", "  ").Event("ParticipantJoinEvent", 1)
	log, err := eventlog.Parse(strings.NewReader(rec.XML()))
	require.NoError(t, err)

	_, ok := log.MetadataValue("opencast-dc-creator")
	assert.False(t, ok, "blank values count as absent")
	_, ok = log.MetadataValue("opencast-dc-subject")
	assert.False(t, ok)
}

func TestParseRejectsMalformedLogs(t *testing.T) {
	cases := map[string]string{
		"not xml":          "this is not xml",
		"empty":            "",
		"wrong root":       `<meeting id="a-1"/>`,
		"no meeting id":    `<recording><event eventname="X"><timestampUTC>1</timestampUTC></event></recording>`,
		"no eventname":     `<recording meeting_id="a-1"><event><timestampUTC>1</timestampUTC></event></recording>`,
		"no timestamp":     `<recording meeting_id="a-1"><event eventname="X"/></recording>`,
		"bad timestampUTC": `<recording meeting_id="a-1"><event eventname="X"><timestampUTC>soon</timestampUTC></event></recording>`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := eventlog.Parse(strings.NewReader(raw))
			require.Error(t, err)
			var mErr *eventlog.MalformedLogError
			assert.True(t, errors.As(err, &mErr), "expected MalformedLogError, got %T", err)
		})
	}
}

func TestParseFallsBackToRecordingMeetingID(t *testing.T) {
	raw := `<recording meeting_id="abc-42"><event eventname="X"><timestampUTC>5</timestampUTC></event></recording>`
	log, err := eventlog.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "abc-42", log.MeetingID)
}

func TestParseFileReportsAbsentLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.xml")
	_, err := eventlog.ParseFile(path)
	require.Error(t, err)

	var mErr *eventlog.MalformedLogError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, path, mErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestParseFileSetsPathOnParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.xml")
	testsupport.WriteBytes(t, path, []byte("<recording"))
	_, err := eventlog.ParseFile(path)

	var mErr *eventlog.MalformedLogError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, path, mErr.Path)
	assert.Contains(t, err.Error(), path)
}

func TestCreationEpoch(t *testing.T) {
	epoch, err := eventlog.CreationEpoch(meetingID)
	require.NoError(t, err)
	assert.Equal(t, int64(1600000000000), epoch)

	for _, bad := range []string{"", "nohyphen", "abc-", "abc-xyz"} {
		_, err := eventlog.CreationEpoch(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilterByKindPreservesStoredOrder(t *testing.T) {
	events := []eventlog.Event{
		{Kind: eventlog.KindAudioStarted, TimestampUTC: 30, Seq: 0},
		{Kind: eventlog.KindPublicChat, TimestampUTC: 10, Seq: 1},
		{Kind: eventlog.KindAudioStarted, TimestampUTC: 20, Seq: 2},
	}
	got := eventlog.FilterByKind(events, eventlog.KindAudioStarted)
	require.Len(t, got, 2)
	assert.Equal(t, []int{0, 2}, []int{got[0].Seq, got[1].Seq})
	assert.Empty(t, eventlog.FilterByKind(events, eventlog.KindSlideChanged))
}

func TestEventHelpers(t *testing.T) {
	evt := eventlog.Event{Attributes: map[string]string{
		eventlog.AttrFilename: `C:\kurento\screen.webm`,
		eventlog.AttrSlide:    " 4 ",
		eventlog.AttrStatus:   "false",
	}}
	assert.Equal(t, "screen.webm", evt.Filename())
	assert.Equal(t, 4, evt.SlideIndex())
	assert.False(t, evt.RecordingOn())

	empty := eventlog.Event{}
	assert.Equal(t, "", empty.Filename())
	assert.Equal(t, 0, empty.SlideIndex())
	assert.False(t, empty.Has(eventlog.AttrSender))
}
