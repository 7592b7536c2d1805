package dublincore_test

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocingest/internal/dublincore"
	"ocingest/internal/timeline"
)

type metadata map[string]string

func (m metadata) MetadataValue(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

var bounds = timeline.Bounds{StartEpochMs: 1_600_000_000_000, EndEpochMs: 1_600_003_600_000}

func TestResolveEpisodeFallbacks(t *testing.T) {
	meta := metadata{
		"meetingname":            "Lecture 4",
		"opencast-dc-creator":    "Dr. Lovelace",
		"opencast-dc-ispartof":   "series-1",
		"opencast-dc-subject":    "",
		"opencast-dc-spatial":    "Room 101",
		"opencast-dc-identifier": "b2f1c0de-0000-4000-8000-000000000001",
	}
	catalog := dublincore.Resolve(dublincore.EpisodeFields, dublincore.Inputs{Metadata: meta, Bounds: bounds})

	title, ok := catalog.Get(dublincore.TermTitle)
	require.True(t, ok)
	assert.Equal(t, "Lecture 4", title)
	spatial, _ := catalog.Get(dublincore.TermSpatial)
	assert.Equal(t, "Room 101", spatial)
	created, _ := catalog.Get(dublincore.TermCreated)
	assert.Equal(t, "2020-09-13T12:26:40Z", created)
	temporal, _ := catalog.Get(dublincore.TermTemporal)
	assert.Equal(t, "start=2020-09-13T12:26:40Z; end=2020-09-13T13:26:40Z; scheme=W3C-DTF", temporal)
	_, ok = catalog.Get(dublincore.TermSubject)
	assert.False(t, ok, "empty metadata counts as absent")
	_, ok = catalog.Get(dublincore.TermSource)
	assert.False(t, ok)
}

func TestResolveSourceFromIdentifier(t *testing.T) {
	meta := metadata{"opencast-dc-identifier": "requested-id"}
	catalog := dublincore.Resolve(dublincore.EpisodeFields, dublincore.Inputs{Metadata: meta, Bounds: bounds, PassIdentifierAsSource: true})
	source, ok := catalog.Get(dublincore.TermSource)
	require.True(t, ok)
	assert.Equal(t, "requested-id", source)
}

func TestResolveSeries(t *testing.T) {
	meta := metadata{
		"meetingname":                "Lecture 4",
		"opencast-series-dc-title":   "Algorithms",
		"opencast-dc-ispartof":       "series-1",
		"opencast-series-dc-creator": "Faculty",
	}
	catalog := dublincore.Resolve(dublincore.SeriesFields, dublincore.Inputs{Metadata: meta, Bounds: bounds})
	assert.Equal(t, []dublincore.Entry{
		{Term: dublincore.TermTitle, Value: "Algorithms"},
		{Term: dublincore.TermIdentifier, Value: "series-1"},
		{Term: dublincore.TermCreator, Value: "Faculty"},
	}, catalog.Entries())
}

func TestSetReplacesAndRemoves(t *testing.T) {
	var catalog dublincore.Catalog
	catalog.Set(dublincore.TermIdentifier, "a")
	catalog.Set(dublincore.TermTitle, "t")
	catalog.Set(dublincore.TermIdentifier, "b")
	v, _ := catalog.Get(dublincore.TermIdentifier)
	assert.Equal(t, "b", v)
	catalog.Set(dublincore.TermIdentifier, "")
	assert.Equal(t, []dublincore.Entry{{Term: dublincore.TermTitle, Value: "t"}}, catalog.Entries())
}

func TestRenderUsesTermsNamespace(t *testing.T) {
	var catalog dublincore.Catalog
	catalog.Set(dublincore.TermTitle, "Lecture <4>")
	catalog.Set(dublincore.TermCreated, "2020-09-13T12:26:40Z")

	data, err := catalog.Encode()
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, "dublincore", root.Tag)
	children := root.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "dcterms", children[0].Space)
	assert.Equal(t, "title", children[0].Tag)
	assert.Equal(t, "Lecture <4>", children[0].Text())
	assert.Contains(t, string(data), `xmlns:dcterms="http://purl.org/dc/terms/"`)
}
