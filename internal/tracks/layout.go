package tracks

import (
	"path/filepath"

	"ocingest/internal/config"
	"ocingest/internal/eventlog"
)

// Layout resolves the directories of one raw recording and its scratch
// workspace.
type Layout struct {
	Root      string
	MeetingID string
	Scratch   string
}

// NewLayout returns the layout of a meeting under the configured raw root.
func NewLayout(cfg *config.Config, meetingID string) Layout {
	return Layout{
		Root:      cfg.RecordingDir(meetingID),
		MeetingID: meetingID,
		Scratch:   cfg.ScratchDir(meetingID),
	}
}

func (l Layout) EventsPath() string { return filepath.Join(l.Root, eventlog.FileName) }

// WebcamDir holds webcam shares, which the recorder nests per meeting.
func (l Layout) WebcamDir() string { return filepath.Join(l.Root, "video", l.MeetingID) }

func (l Layout) AudioDir() string { return filepath.Join(l.Root, "audio") }

func (l Layout) DeskShareDir() string { return filepath.Join(l.Root, "deskshare") }

func (l Layout) PresentationDir() string { return filepath.Join(l.Root, "presentation") }

func (l Layout) NotesPath() string { return filepath.Join(l.Root, "notes", "notes.etherpad") }

// TranscodeDir receives normalized copies of webcam and desk-share files.
func (l Layout) TranscodeDir() string { return filepath.Join(l.Scratch, "transcoded") }

// SlidesDir receives rendered slide videos, one subdirectory per presentation.
func (l Layout) SlidesDir() string { return filepath.Join(l.Scratch, "slides") }

func (l Layout) CutMarksPath() string { return filepath.Join(l.Scratch, "cutting.json") }

func (l Layout) CaptionsPath() string { return filepath.Join(l.Scratch, "chat.vtt") }

func (l Layout) ACLPath() string { return filepath.Join(l.Scratch, "acl.xml") }

func (l Layout) DublinCorePath() string { return filepath.Join(l.Scratch, "dublincore.xml") }
