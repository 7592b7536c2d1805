// Package dublincore resolves and renders the Dublin Core catalogs sent with
// an episode and used to create its series.
package dublincore

import (
	"time"

	"ocingest/internal/timeline"
)

// Metadata looks up session metadata by case-insensitive key. Empty values
// are reported as absent.
type Metadata interface {
	MetadataValue(key string) (string, bool)
}

// Inputs carries everything a field fallback may derive its value from.
type Inputs struct {
	Metadata Metadata
	Bounds   timeline.Bounds
	// PassIdentifierAsSource copies the session's requested identifier into
	// the source field.
	PassIdentifierAsSource bool
}

func (in Inputs) value(key string) string {
	if in.Metadata == nil {
		return ""
	}
	v, _ := in.Metadata.MetadataValue(key)
	return v
}

// Field declares how one catalog term is resolved: the metadata key wins,
// otherwise Fallback is used. A nil Fallback leaves the term absent.
type Field struct {
	Term     string
	Key      string
	Fallback func(Inputs) string
}

// Catalog terms.
const (
	TermTitle        = "title"
	TermIdentifier   = "identifier"
	TermCreator      = "creator"
	TermIsPartOf     = "isPartOf"
	TermContributor  = "contributor"
	TermSubject      = "subject"
	TermLanguage     = "language"
	TermDescription  = "description"
	TermSpatial      = "spatial"
	TermCreated      = "created"
	TermRightsHolder = "rightsHolder"
	TermLicense      = "license"
	TermPublisher    = "publisher"
	TermTemporal     = "temporal"
	TermSource       = "source"
)

// MeetingNameKey is the metadata entry holding the meeting's display name.
const MeetingNameKey = "meetingname"

// IdentifierKey and SeriesKey name the metadata entries an operator uses to
// pin the episode identifier and its series.
const (
	IdentifierKey = "opencast-dc-identifier"
	SeriesKey     = "opencast-dc-ispartof"
)

func literal(v string) func(Inputs) string {
	return func(Inputs) string { return v }
}

func fromKey(key string) func(Inputs) string {
	return func(in Inputs) string { return in.value(key) }
}

func epochTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// EpisodeFields lists the episode catalog terms in rendering order.
var EpisodeFields = []Field{
	{Term: TermTitle, Key: "opencast-dc-title", Fallback: fromKey(MeetingNameKey)},
	{Term: TermIdentifier, Key: IdentifierKey},
	{Term: TermCreator, Key: "opencast-dc-creator"},
	{Term: TermIsPartOf, Key: SeriesKey},
	{Term: TermContributor, Key: "opencast-dc-contributor"},
	{Term: TermSubject, Key: "opencast-dc-subject"},
	{Term: TermLanguage, Key: "opencast-dc-language"},
	{Term: TermDescription, Key: "opencast-dc-description"},
	{Term: TermSpatial, Key: "opencast-dc-spatial", Fallback: literal("BigBlueButton")},
	{Term: TermCreated, Key: "opencast-dc-created", Fallback: func(in Inputs) string {
		return epochTime(in.Bounds.StartEpochMs).Format(time.RFC3339)
	}},
	{Term: TermRightsHolder, Key: "opencast-dc-rightsholder"},
	{Term: TermLicense, Key: "opencast-dc-license"},
	{Term: TermPublisher, Key: "opencast-dc-publisher"},
	{Term: TermTemporal, Key: "opencast-dc-temporal", Fallback: func(in Inputs) string {
		return "start=" + epochTime(in.Bounds.StartEpochMs).Format(time.RFC3339) +
			"; end=" + epochTime(in.Bounds.EndEpochMs).Format(time.RFC3339) +
			"; scheme=W3C-DTF"
	}},
	{Term: TermSource, Key: "opencast-dc-source", Fallback: func(in Inputs) string {
		if !in.PassIdentifierAsSource {
			return ""
		}
		return in.value(IdentifierKey)
	}},
}

// SeriesFields lists the series catalog terms in rendering order.
var SeriesFields = []Field{
	{Term: TermTitle, Key: "opencast-series-dc-title", Fallback: fromKey(MeetingNameKey)},
	{Term: TermIdentifier, Key: SeriesKey},
	{Term: TermCreator, Key: "opencast-series-dc-creator"},
	{Term: TermContributor, Key: "opencast-series-dc-contributor"},
	{Term: TermSubject, Key: "opencast-series-dc-subject"},
	{Term: TermLanguage, Key: "opencast-series-dc-language"},
	{Term: TermDescription, Key: "opencast-series-dc-description"},
	{Term: TermRightsHolder, Key: "opencast-series-dc-rightsholder"},
	{Term: TermLicense, Key: "opencast-series-dc-license"},
	{Term: TermPublisher, Key: "opencast-series-dc-publisher"},
}
