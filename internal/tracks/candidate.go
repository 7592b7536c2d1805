package tracks

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"ocingest/internal/eventlog"
)

// Flavor classifies a track's role in the media package.
type Flavor string

const (
	FlavorPresenter    Flavor = "presenter/source"
	FlavorPresentation Flavor = "presentation/source"
)

// Source names the kind of capture a candidate came from.
type Source string

const (
	SourceWebcam    Source = "webcam"
	SourceAudio     Source = "audio"
	SourceDeskShare Source = "deskshare"
	SourceSlides    Source = "slides"
)

func sourceForKind(kind eventlog.Kind) Source {
	switch kind {
	case eventlog.KindWebcamShareStarted:
		return SourceWebcam
	case eventlog.KindAudioStarted:
		return SourceAudio
	case eventlog.KindDeskShareStarted:
		return SourceDeskShare
	case eventlog.KindPresentationShared, eventlog.KindSlideChanged:
		return SourceSlides
	default:
		return Source(kind)
	}
}

// Candidate is a media file referenced by an event that exists on disk but
// has not been validated yet.
type Candidate struct {
	Source      Source
	TimestampMs int64
	Path        string
	// PresentationGroup is the presentation a slide belongs to.
	PresentationGroup string
}

// Track is a validated candidate ready for ingest. StartTimeMs is relative to
// session start.
type Track struct {
	Flavor            Flavor
	Source            Source
	StartTimeMs       int64
	Path              string
	PresentationGroup string
}

// CollectTimestampedFiles returns a candidate for every event of kind whose
// recorded filename exists under storageRoot. Missing files are skipped.
func CollectTimestampedFiles(events []eventlog.Event, kind eventlog.Kind, storageRoot string) []Candidate {
	var out []Candidate
	for _, evt := range eventlog.FilterByKind(events, kind) {
		name := evt.Filename()
		if name == "" {
			continue
		}
		path := filepath.Join(storageRoot, name)
		if !isFile(path) {
			continue
		}
		out = append(out, Candidate{
			Source:      sourceForKind(kind),
			TimestampMs: evt.TimestampUTC,
			Path:        path,
		})
	}
	return out
}

// SlideFileName returns the rendered image name for a zero-based slide index.
func SlideFileName(index int) string {
	return "slide" + strconv.Itoa(index+1) + ".svg"
}

// CollectSlidePresentationFiles returns slide candidates for the given kinds,
// all events of the first kind before those of the next. Each slide resolves to
// storageRoot/<presentation>/svgs/slide<N+1>.svg; events without a
// presentation name or whose slide image is missing are skipped.
func CollectSlidePresentationFiles(events []eventlog.Event, kinds []eventlog.Kind, storageRoot string) []Candidate {
	var out []Candidate
	for _, kind := range kinds {
		for _, evt := range eventlog.FilterByKind(events, kind) {
			presentation := evt.Attr(eventlog.AttrPresentationName)
			if presentation == "" || filepath.Base(presentation) != presentation {
				continue
			}
			path := filepath.Join(storageRoot, presentation, "svgs", SlideFileName(evt.SlideIndex()))
			if !isFile(path) {
				continue
			}
			out = append(out, Candidate{
				Source:            SourceSlides,
				TimestampMs:       evt.TimestampUTC,
				Path:              path,
				PresentationGroup: presentation,
			})
		}
	}
	return out
}

// SortByStart orders tracks by StartTimeMs. Tracks with equal start times
// keep their relative order.
func SortByStart(tracks []Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].StartTimeMs < tracks[j].StartTimeMs
	})
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
