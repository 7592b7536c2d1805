package eventlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/cases"
)

// FileName is the event log's name inside a raw recording directory.
const FileName = "events.xml"

// foldKey builds a fresh Caser per call; Casers are stateful and not safe to share.
func foldKey(key string) string {
	return cases.Fold().String(strings.TrimSpace(key))
}

// Log is a parsed recording: meeting identity, operator metadata, and events.
type Log struct {
	MeetingID string
	Metadata  map[string]string
	Events    []Event
}

// Kind returns the events of one kind in stored order.
func (l *Log) Kind(kind Kind) []Event {
	if l == nil {
		return nil
	}
	return FilterByKind(l.Events, kind)
}

// MetadataValue looks up a metadata key case-insensitively. Empty values are
// reported as absent.
func (l *Log) MetadataValue(key string) (string, bool) {
	if l == nil {
		return "", false
	}
	value := strings.TrimSpace(l.Metadata[foldKey(key)])
	return value, value != ""
}

// CreationEpoch extracts the creation time in epoch milliseconds embedded as
// the trailing "-<epochMs>" segment of a meeting identifier.
func CreationEpoch(meetingID string) (int64, error) {
	idx := strings.LastIndex(meetingID, "-")
	if idx < 0 || idx == len(meetingID)-1 {
		return 0, malformed(fmt.Sprintf("meeting id %q has no creation epoch", meetingID), nil)
	}
	epoch, err := strconv.ParseInt(meetingID[idx+1:], 10, 64)
	if err != nil || epoch < 0 {
		return 0, malformed(fmt.Sprintf("meeting id %q has no creation epoch", meetingID), err)
	}
	return epoch, nil
}

// ParseFile reads and parses the event log at path.
func ParseFile(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		reason := "read failed"
		if errors.Is(err, fs.ErrNotExist) {
			reason = "log is absent"
		}
		return nil, &MalformedLogError{Path: path, Reason: reason, Err: err}
	}
	log, err := Parse(bytes.NewReader(data))
	if err != nil {
		var mErr *MalformedLogError
		if errors.As(err, &mErr) {
			mErr.Path = path
		}
		return nil, err
	}
	return log, nil
}

// Parse decodes an events.xml document. Every event must carry an eventname and
// a numeric timestampUTC; anything else is a *MalformedLogError.
func Parse(r io.Reader) (*Log, error) {
	if r == nil {
		return nil, malformed("log is absent", nil)
	}
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, malformed("invalid xml", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, malformed("document is empty", nil)
	}
	if root.Tag != "recording" {
		return nil, malformed(fmt.Sprintf("unexpected root element <%s>", root.Tag), nil)
	}

	log := &Log{Metadata: map[string]string{}}
	if meeting := root.SelectElement("meeting"); meeting != nil {
		log.MeetingID = strings.TrimSpace(meeting.SelectAttrValue("id", ""))
	}
	if log.MeetingID == "" {
		log.MeetingID = strings.TrimSpace(root.SelectAttrValue("meeting_id", ""))
	}
	if log.MeetingID == "" {
		return nil, malformed("meeting id is missing", nil)
	}

	if metadata := root.SelectElement("metadata"); metadata != nil {
		for _, attr := range metadata.Attr {
			log.Metadata[foldKey(attr.Key)] = attr.Value
		}
	}

	for idx, el := range root.SelectElements("event") {
		evt, err := parseEvent(el, idx)
		if err != nil {
			return nil, err
		}
		log.Events = append(log.Events, evt)
	}
	return log, nil
}

func parseEvent(el *etree.Element, seq int) (Event, error) {
	kind := strings.TrimSpace(el.SelectAttrValue("eventname", ""))
	if kind == "" {
		return Event{}, malformed(fmt.Sprintf("event %d has no eventname", seq), nil)
	}
	evt := Event{
		Kind:       Kind(kind),
		Module:     strings.TrimSpace(el.SelectAttrValue("module", "")),
		Seq:        seq,
		Attributes: map[string]string{},
	}
	for _, child := range el.ChildElements() {
		evt.Attributes[child.Tag] = child.Text()
	}
	raw, ok := evt.Attributes["timestampUTC"]
	if !ok {
		return Event{}, malformed(fmt.Sprintf("event %d (%s) has no timestampUTC", seq, kind), nil)
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return Event{}, malformed(fmt.Sprintf("event %d (%s) has invalid timestampUTC %q", seq, kind, raw), err)
	}
	evt.TimestampUTC = ts
	delete(evt.Attributes, "timestampUTC")
	return evt, nil
}
