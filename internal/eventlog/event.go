package eventlog

import (
	"path"
	"sort"
	"strconv"
	"strings"
)

// Kind is the eventname recorded on an event.
type Kind string

const (
	KindDeskShareStarted    Kind = "StartWebRTCDesktopShareEvent"
	KindWebcamShareStarted  Kind = "StartWebRTCShareEvent"
	KindAudioStarted        Kind = "StartRecordingEvent"
	KindRecordStatus        Kind = "RecordStatusEvent"
	KindPresentationShared  Kind = "SharePresentationEvent"
	KindSlideChanged        Kind = "GotoSlideEvent"
	KindPublicChat          Kind = "PublicChatEvent"
	KindParticipantJoined   Kind = "ParticipantJoinEvent"
	KindConversionCompleted Kind = "ConversionCompletedEvent"
)

// Attribute keys carried as child elements of an event.
const (
	AttrFilename         = "filename"
	AttrStatus           = "status"
	AttrSlide            = "slide"
	AttrPresentationName = "presentationName"
	AttrSender           = "sender"
	AttrMessage          = "message"
)

// Event is one occurrence in the log. It is not modified after parsing.
type Event struct {
	Kind         Kind
	Module       string
	TimestampUTC int64
	// Seq is the zero-based position of the event in the stored log.
	Seq        int
	Attributes map[string]string
}

// Attr returns the trimmed attribute value, or "" when absent.
func (e Event) Attr(key string) string {
	return strings.TrimSpace(e.Attributes[key])
}

// Has reports whether the attribute is present with a non-empty value.
func (e Event) Has(key string) bool {
	return e.Attr(key) != ""
}

// Filename returns the base name of the media file recorded on the event.
// Recorders log absolute paths from their own host, so only the last segment
// is meaningful relative to the archive.
func (e Event) Filename() string {
	raw := strings.ReplaceAll(e.Attr(AttrFilename), `\`, "/")
	if raw == "" {
		return ""
	}
	base := path.Base(raw)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// RecordingOn reports whether a record-status event turned capture on.
func (e Event) RecordingOn() bool {
	on, err := strconv.ParseBool(e.Attr(AttrStatus))
	return err == nil && on
}

// SlideIndex returns the zero-based slide attribute. A missing or unparsable
// value selects the first slide.
func (e Event) SlideIndex() int {
	n, err := strconv.Atoi(e.Attr(AttrSlide))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// FilterByKind returns the events of the given kind in stored order.
func FilterByKind(events []Event, kind Kind) []Event {
	var out []Event
	for _, evt := range events {
		if evt.Kind == kind {
			out = append(out, evt)
		}
	}
	return out
}

// SortByTimestamp returns a copy of events ordered by TimestampUTC. Events
// with equal timestamps keep their stored order.
func SortByTimestamp(events []Event) []Event {
	out := append([]Event(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampUTC < out[j].TimestampUTC
	})
	return out
}
