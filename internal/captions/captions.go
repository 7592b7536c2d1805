// Package captions renders public chat as a WebVTT caption track.
package captions

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ocingest/internal/eventlog"
	"ocingest/internal/timeline"
)

// Flavor is the attachment flavor the caption track is uploaded under.
const Flavor = "captions/vtt+en"

// DisplayCeiling is the longest time a message stays on screen.
const DisplayCeiling = 3 * time.Second

// Cue is one caption block.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Document is a WebVTT caption track.
type Document struct {
	Cues []Cue
}

// RenderChatOverlay selects chat messages that fall within any recording
// interval, bounds inclusive, and times them relative to session start. A
// message stays up until the next one when that arrives within
// DisplayCeiling, otherwise for DisplayCeiling. It returns nil when no
// message was selected.
func RenderChatOverlay(events []eventlog.Event, intervals []timeline.Interval, bounds timeline.Bounds) *Document {
	var selected []eventlog.Event
	for _, evt := range eventlog.SortByTimestamp(eventlog.FilterByKind(events, eventlog.KindPublicChat)) {
		if withinAny(evt.TimestampUTC, intervals) {
			selected = append(selected, evt)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	doc := &Document{Cues: make([]Cue, len(selected))}
	for i, evt := range selected {
		start := time.Duration(bounds.Relative(evt.TimestampUTC)) * time.Millisecond
		end := start + DisplayCeiling
		if i+1 < len(selected) {
			next := time.Duration(bounds.Relative(selected[i+1].TimestampUTC)) * time.Millisecond
			if next-start < DisplayCeiling {
				end = next
			}
		}
		doc.Cues[i] = Cue{
			Start: start,
			End:   end,
			Text:  evt.Attributes[eventlog.AttrSender] + ": " + evt.Attributes[eventlog.AttrMessage],
		}
	}
	return doc
}

func withinAny(ts int64, intervals []timeline.Interval) bool {
	for _, iv := range intervals {
		if iv.Contains(ts) {
			return true
		}
	}
	return false
}

// String renders the document as WebVTT.
func (d *Document) String() string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, cue := range d.Cues {
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

// WriteTo writes the WebVTT rendering to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}

// Write stores the document at path, creating the parent directory.
func (d *Document) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create captions directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(d.String()), 0o644); err != nil {
		return fmt.Errorf("write captions: %w", err)
	}
	return nil
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}
