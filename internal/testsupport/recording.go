package testsupport

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/beevik/etree"
)

// Recording builds a raw recording's events.xml for tests.
type Recording struct {
	t         testing.TB
	meetingID string
	metadata  [][2]string
	events    []recordedEvent
}

type recordedEvent struct {
	name   string
	module string
	ts     int64
	fields [][2]string
}

// NewRecording starts a recording for the given meeting identifier.
func NewRecording(t testing.TB, meetingID string) *Recording {
	t.Helper()
	return &Recording{t: t, meetingID: meetingID}
}

// MeetingID returns the identifier the recording was built with.
func (r *Recording) MeetingID() string { return r.meetingID }

// Meta adds a metadata attribute.
func (r *Recording) Meta(key, value string) *Recording {
	r.metadata = append(r.metadata, [2]string{key, value})
	return r
}

// Event appends an event. fields are key/value pairs written as child elements.
func (r *Recording) Event(name string, ts int64, fields ...string) *Recording {
	if len(fields)%2 != 0 {
		r.t.Fatalf("event %s: odd number of field arguments", name)
	}
	evt := recordedEvent{name: name, module: moduleFor(name), ts: ts}
	for i := 0; i < len(fields); i += 2 {
		evt.fields = append(evt.fields, [2]string{fields[i], fields[i+1]})
	}
	r.events = append(r.events, evt)
	return r
}

// XML renders the events.xml document.
func (r *Recording) XML() string {
	r.t.Helper()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("recording")
	root.CreateAttr("meeting_id", r.meetingID)
	root.CreateAttr("bbb_version", "2.7.0")
	meeting := root.CreateElement("meeting")
	meeting.CreateAttr("id", r.meetingID)
	meeting.CreateAttr("breakout", "false")
	metadata := root.CreateElement("metadata")
	for _, kv := range r.metadata {
		metadata.CreateAttr(kv[0], kv[1])
	}
	for _, evt := range r.events {
		el := root.CreateElement("event")
		el.CreateAttr("timestamp", strconv.FormatInt(evt.ts, 10))
		el.CreateAttr("module", evt.module)
		el.CreateAttr("eventname", evt.name)
		el.CreateElement("timestampUTC").SetText(strconv.FormatInt(evt.ts, 10))
		for _, kv := range evt.fields {
			el.CreateElement(kv[0]).SetText(kv[1])
		}
	}
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		r.t.Fatalf("render events.xml: %v", err)
	}
	return out
}

// Write stores events.xml under rawDir/<meetingID>/ and returns the recording
// directory.
func (r *Recording) Write(rawDir string) string {
	r.t.Helper()

	dir := filepath.Join(rawDir, r.meetingID)
	WriteBytes(r.t, filepath.Join(dir, "events.xml"), []byte(r.XML()))
	return dir
}

func moduleFor(name string) string {
	switch name {
	case "StartWebRTCShareEvent":
		return "WEBCAM"
	case "StartWebRTCDesktopShareEvent":
		return "bbb-webrtc-sfu"
	case "StartRecordingEvent":
		return "VOICE"
	case "SharePresentationEvent", "GotoSlideEvent":
		return "PRESENTATION"
	case "PublicChatEvent":
		return "CHAT"
	default:
		return "PARTICIPANT"
	}
}
