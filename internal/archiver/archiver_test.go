package archiver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocingest/internal/acl"
	"ocingest/internal/archiver"
	"ocingest/internal/config"
	"ocingest/internal/cutmarks"
	"ocingest/internal/ledger"
	"ocingest/internal/media/ffprobe"
	"ocingest/internal/metrics"
	"ocingest/internal/services"
	"ocingest/internal/services/opencast"
	"ocingest/internal/staging"
	"ocingest/internal/testsupport"
	"ocingest/internal/tracks"
)

const (
	meetingID = "6e35e3b2778883f5db637d7a5dba0a427f692e91-1600000000000"
	start     = int64(1600000000000)
	fixedID   = "11111111-2222-4333-8444-555555555555"
)

type call struct {
	method    string
	path      string
	flavor    string
	startTime string
	file      string
	fields    map[string]string
}

type fakeOpencast struct {
	mu         sync.Mutex
	calls      []call
	events     map[string]bool
	series     []opencast.Series
	seriesACL  map[string]string
	failIngest bool
}

func newFakeOpencast(t *testing.T) (*fakeOpencast, *httptest.Server) {
	t.Helper()
	fake := &fakeOpencast{events: map[string]bool{}, seriesACL: map[string]string{}}
	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeOpencast) serve(w http.ResponseWriter, r *http.Request) {
	rec := call{method: r.Method, path: r.URL.Path, fields: map[string]string{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for key, values := range r.MultipartForm.Value {
				rec.fields[key] = values[0]
			}
			if files := r.MultipartForm.File["BODY"]; len(files) == 1 {
				if fh, err := files[0].Open(); err == nil {
					data, _ := io.ReadAll(fh)
					fh.Close()
					rec.file = string(data)
				}
			}
		}
	} else if err := r.ParseForm(); err == nil {
		for key, values := range r.PostForm {
			rec.fields[key] = values[0]
		}
	}
	rec.flavor = rec.fields["flavor"]
	rec.startTime = rec.fields["startTime"]

	f.mu.Lock()
	f.calls = append(f.calls, rec)
	f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/ingest/createMediaPackageWithID/"):
		id := strings.TrimPrefix(path, "/ingest/createMediaPackageWithID/")
		io.WriteString(w, `<mediapackage xmlns="http://mediapackage.opencastproject.org" id="`+id+`"><media/></mediapackage>`)
	case path == "/ingest/addPartialTrack", path == "/ingest/addDCCatalog",
		path == "/ingest/addCatalog", path == "/ingest/addAttachment":
		io.WriteString(w, rec.fields["mediaPackage"])
	case strings.HasPrefix(path, "/ingest/ingest/"):
		if f.failIngest {
			http.Error(w, "workflow definition missing", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `<workflow id="4711" state="RUNNING"/>`)
	case strings.HasPrefix(path, "/api/events/"):
		f.mu.Lock()
		exists := f.events[strings.TrimPrefix(path, "/api/events/")]
		f.mu.Unlock()
		if !exists {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{}`)
	case path == "/series/allSeriesIdTitle.json":
		json.NewEncoder(w).Encode(map[string]any{"series": f.series})
	case strings.HasSuffix(path, "/acl.xml"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/series/"), "/acl.xml")
		body, ok := f.seriesACL[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	case path == "/series/", strings.HasSuffix(path, "/accesscontrol"):
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOpencast) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeOpencast) find(path string) []call {
	var out []call
	for _, c := range f.snapshot() {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

type validChecker struct{}

func (validChecker) Check(context.Context, string) ffprobe.Verdict {
	return ffprobe.Verdict{Valid: true}
}

func staticMedia(tracks.Layout, *slog.Logger) archiver.MediaTools {
	return archiver.MediaTools{Checker: validChecker{}}
}

type harness struct {
	cfg     *config.Config
	fake    *fakeOpencast
	ledger  *ledger.Store
	metrics *metrics.Metrics
	deleted []string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	fake, server := newFakeOpencast(t)
	cfg := testsupport.NewConfig(t, testsupport.WithOpencastURL(server.URL), testsupport.WithConfig(func(c *config.Config) {
		if mutate != nil {
			mutate(c)
		}
	}))
	return &harness{cfg: cfg, fake: fake, ledger: testsupport.MustOpenLedger(t, cfg), metrics: metrics.New()}
}

func (h *harness) archiver(t *testing.T, monitor archiver.Waiter) *archiver.Archiver {
	t.Helper()
	client, err := opencast.NewFromConfig(h.cfg, nil)
	require.NoError(t, err)
	deps := archiver.Dependencies{
		Remote:  client,
		Media:   staticMedia,
		Ledger:  h.ledger,
		Metrics: h.metrics,
		NewID:   func() string { return fixedID },
		DeleteRaw: func(_ context.Context, _ []string, id string, _ *slog.Logger) error {
			h.deleted = append(h.deleted, id)
			return nil
		},
	}
	if monitor != nil {
		deps.Monitor = monitor
	}
	a, err := archiver.New(h.cfg, deps)
	require.NoError(t, err)
	return a
}

// recording lays out a session with a webcam and an audio file, both started
// one second in, and a recording interval from +5s to +15s.
func recording(t *testing.T, cfg *config.Config) *testsupport.Recording {
	t.Helper()
	root := cfg.RecordingDir(meetingID)
	testsupport.WriteFile(t, filepath.Join(root, "video", meetingID, "cam1.webm"), 16)
	testsupport.WriteFile(t, filepath.Join(root, "audio", "room.opus"), 16)
	return testsupport.NewRecording(t, meetingID).
		Meta("meetingName", "Lecture 1").
		Event("ParticipantJoinEvent", start).
		Event("StartWebRTCShareEvent", start+1000, "filename", "/var/kurento/recordings/"+meetingID+"/cam1.webm").
		Event("StartRecordingEvent", start+1000, "filename", "/var/freeswitch/meetings/room.opus").
		Event("RecordStatusEvent", start+5000, "status", "true").
		Event("RecordStatusEvent", start+15000, "status", "false").
		Event("ParticipantJoinEvent", start+20000)
}

func paths(calls []call) []string {
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.method+" "+c.path)
	}
	return out
}

func TestRunIngestsRecordedIntervals(t *testing.T) {
	h := newHarness(t, nil)
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)

	report, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusIngested, report.Status)
	assert.Equal(t, "4711", report.Ingest.WorkflowID)
	assert.Equal(t, fixedID, report.MediaPackageID)
	require.Len(t, report.Plan.Tracks, 2)
	assert.Equal(t, tracks.FlavorPresenter, report.Plan.Tracks[0].Flavor)
	assert.Equal(t, tracks.FlavorPresentation, report.Plan.Tracks[1].Flavor)

	assert.Equal(t, []string{
		"PUT /ingest/createMediaPackageWithID/" + fixedID,
		"POST /ingest/addPartialTrack",
		"POST /ingest/addPartialTrack",
		"POST /ingest/addDCCatalog",
		"POST /ingest/addCatalog",
		"POST /ingest/ingest/" + h.cfg.Opencast.Workflow,
	}, paths(h.fake.snapshot()))

	for _, track := range h.fake.find("/ingest/addPartialTrack") {
		assert.Equal(t, "1000", track.startTime)
	}
	marks := h.fake.find("/ingest/addCatalog")
	require.Len(t, marks, 1)
	assert.Equal(t, cutmarks.Flavor, marks[0].flavor)
	assert.JSONEq(t, `[{"begin":5000,"duration":10000}]`, marks[0].file)

	dc := h.fake.find("/ingest/addDCCatalog")
	require.Len(t, dc, 1)
	assert.Contains(t, dc[0].fields["dublinCore"], "Lecture 1")
	assert.Contains(t, dc[0].fields["dublinCore"], fixedID)

	_, statErr := os.Stat(h.cfg.ScratchDir(meetingID))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "scratch workspace should be removed")
	assert.Empty(t, h.deleted, "cleanup is disabled")

	runs, err := h.ledger.List(context.Background(), meetingID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.StatusIngested, runs[0].Status)
	assert.Equal(t, 2, runs[0].TrackCount)
	assert.Equal(t, "4711", runs[0].WorkflowID)
}

func TestRunSkipsWhenRecordNeverPressed(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Ingest.OnlyIfRecordPressed = true })
	testsupport.WriteFile(t, filepath.Join(h.cfg.RecordingDir(meetingID), "audio", "room.opus"), 16)
	testsupport.NewRecording(t, meetingID).
		Event("ParticipantJoinEvent", start).
		Event("StartRecordingEvent", start+1000, "filename", "room.opus").
		Event("ParticipantJoinEvent", start+9000).
		Write(h.cfg.Paths.RawDir)

	report, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.ErrorIs(t, err, archiver.ErrNothingToIngest)
	assert.Equal(t, ledger.StatusSkipped, report.Status)
	assert.Empty(t, h.fake.snapshot())

	run, err := h.ledger.Latest(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSkipped, run.Status)
}

func TestRunTreatsSessionWithoutRecordEventsAsRecorded(t *testing.T) {
	h := newHarness(t, nil)
	testsupport.WriteFile(t, filepath.Join(h.cfg.RecordingDir(meetingID), "audio", "room.opus"), 16)
	testsupport.NewRecording(t, meetingID).
		Event("ParticipantJoinEvent", start).
		Event("StartRecordingEvent", start+1000, "filename", "room.opus").
		Event("ParticipantJoinEvent", start+9000).
		Write(h.cfg.Paths.RawDir)

	report, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.NoError(t, err)
	assert.True(t, report.Plan.ImplicitRecording)

	marks := h.fake.find("/ingest/addCatalog")
	require.Len(t, marks, 1)
	assert.JSONEq(t, `[{"begin":0,"duration":9000}]`, marks[0].file)
}

func TestRunIdentifierHandling(t *testing.T) {
	const requested = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	cases := []struct {
		name     string
		value    string
		existing bool
		want     string
	}{
		{name: "valid and unused", value: requested, want: requested},
		{name: "already used", value: requested, existing: true, want: fixedID},
		{name: "not a uuid", value: "lecture-1", want: fixedID},
		{name: "braced uuid", value: "{" + requested + "}", want: fixedID},
		{name: "urn uuid", value: "urn:uuid:" + requested, want: fixedID},
		{name: "version zero", value: "aaaaaaaa-bbbb-0ccc-8ddd-eeeeeeeeeeee", want: fixedID},
		{name: "non rfc variant", value: "aaaaaaaa-bbbb-4ccc-cddd-eeeeeeeeeeee", want: fixedID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, func(c *config.Config) { c.Ingest.PassIdentifierAsDCSource = true })
			h.fake.events[requested] = tc.existing
			recording(t, h.cfg).Meta("opencast-dc-identifier", tc.value).Write(h.cfg.Paths.RawDir)

			report, err := h.archiver(t, nil).Run(context.Background(), meetingID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, report.MediaPackageID)

			created := h.fake.find("/ingest/createMediaPackageWithID/" + tc.want)
			assert.Len(t, created, 1)
			dc := h.fake.find("/ingest/addDCCatalog")
			require.Len(t, dc, 1)
			assert.Contains(t, dc[0].fields["dublinCore"], "<dcterms:identifier>"+tc.want+"</dcterms:identifier>")
			assert.Contains(t, dc[0].fields["dublinCore"], "<dcterms:source>"+tc.value+"</dcterms:source>")
		})
	}
}

func TestRunAttachesEpisodeACL(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.ACL.EpisodeReadRoles = "ROLE_ANONYMOUS" })
	recording(t, h.cfg).Meta("opencast-acl-write-roles", "ROLE_LECTURER").Write(h.cfg.Paths.RawDir)

	_, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.NoError(t, err)

	attachments := h.fake.find("/ingest/addAttachment")
	require.Len(t, attachments, 1)
	assert.Equal(t, acl.EpisodeFlavor, attachments[0].flavor)
	assert.Contains(t, attachments[0].file, "ROLE_ANONYMOUS")
	assert.Contains(t, attachments[0].file, "ROLE_LECTURER")
}

func TestRunCreatesMissingSeries(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Ingest.CreateSeries = true })
	recording(t, h.cfg).
		Meta("opencast-dc-ispartof", "series-1").
		Meta("opencast-series-dc-title", "Physics").
		Meta("opencast-series-acl-read-roles", "ROLE_STUDENT").
		Write(h.cfg.Paths.RawDir)

	report, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Equal(t, archiver.SeriesCreated, report.SeriesAction)

	created := h.fake.find("/series/")
	require.Len(t, created, 1)
	assert.Contains(t, created[0].fields["series"], "Physics")
	assert.Contains(t, created[0].fields["acl"], "ROLE_STUDENT")

	order := paths(h.fake.snapshot())
	assert.Less(t, indexOf(order, "POST /series/"), indexOf(order, "PUT /ingest/createMediaPackageWithID/"+fixedID))
}

func TestRunMergesExistingSeriesACL(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Ingest.CreateSeries = true })
	remote, err := acl.Encode(acl.BuildSeriesDocument([]acl.Rule{{Principal: "ROLE_ADMIN", Permission: acl.PermissionRead}}))
	require.NoError(t, err)
	h.fake.series = []opencast.Series{{Identifier: "series-1", Title: "Physics"}}
	h.fake.seriesACL["series-1"] = string(remote)
	recording(t, h.cfg).
		Meta("opencast-dc-ispartof", "series-1").
		Meta("opencast-series-acl-read-roles", "ROLE_ADMIN,ROLE_STUDENT").
		Write(h.cfg.Paths.RawDir)

	report, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Equal(t, archiver.SeriesUpdated, report.SeriesAction)
	assert.Empty(t, h.fake.find("/series/"))

	updated := h.fake.find("/series/series-1/accesscontrol")
	require.Len(t, updated, 1)
	body := updated[0].fields["acl"]
	assert.Equal(t, 1, strings.Count(body, "ROLE_ADMIN"))
	assert.Contains(t, body, "ROLE_STUDENT")
}

func TestRunKeepsDataWhenIngestFails(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Cleanup.Enabled = true
		c.Cleanup.DeleteCommand = []string{"bbb-record", "--delete"}
	})
	h.fake.failIngest = true
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)

	_, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrExternalTool)

	_, statErr := os.Stat(h.cfg.ScratchDir(meetingID))
	assert.NoError(t, statErr, "scratch workspace should be kept for inspection")
	assert.Empty(t, h.deleted)

	run, err := h.ledger.Latest(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, run.Status)
	assert.Contains(t, run.Detail, "500")
}

func TestRunDeletesRawRecordingWhenEnabled(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Cleanup.Enabled = true
		c.Cleanup.DeleteCommand = []string{"bbb-record", "--delete"}
	})
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)

	_, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Equal(t, []string{meetingID}, h.deleted)
}

type fakeWaiter struct{ err error }

func (f fakeWaiter) Wait(context.Context, opencast.IngestResult) error { return f.err }

func TestRunWaitsForWorkflow(t *testing.T) {
	h := newHarness(t, nil)
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)

	report, err := h.archiver(t, fakeWaiter{}).Run(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSucceeded, report.Status)
}

func TestRunMonitorTimeoutFailsRun(t *testing.T) {
	h := newHarness(t, nil)
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)
	timeout := services.Wrap(services.ErrTimeout, "monitor", "wait", "workflow still running", nil)

	_, err := h.archiver(t, fakeWaiter{err: timeout}).Run(context.Background(), meetingID)
	require.ErrorIs(t, err, services.ErrTimeout)

	_, statErr := os.Stat(h.cfg.ScratchDir(meetingID))
	assert.NoError(t, statErr)
	assert.Equal(t, 1.0, outcomeValue(t, h.metrics, services.OutcomeTimedOut))
	assert.Equal(t, 0.0, outcomeValue(t, h.metrics, services.OutcomeSucceeded))
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, nil)
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)

	lock, err := staging.AcquireLock(h.cfg.LockDir(), meetingID)
	require.NoError(t, err)
	defer lock.Release()

	_, err = h.archiver(t, nil).Run(context.Background(), meetingID)
	require.ErrorIs(t, err, staging.ErrLocked)
	assert.Empty(t, h.fake.snapshot())
}

func TestInspectDoesNotUpload(t *testing.T) {
	h := newHarness(t, nil)
	recording(t, h.cfg).Write(h.cfg.Paths.RawDir)

	plan, err := h.archiver(t, nil).Inspect(context.Background(), meetingID)
	require.NoError(t, err)
	assert.Len(t, plan.Tracks, 2)
	assert.Equal(t, []cutmarks.Mark{{BeginMs: 5000, DurationMs: 10000}}, plan.CutMarks)
	assert.Empty(t, h.fake.snapshot())

	runs, err := h.ledger.List(context.Background(), meetingID, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunMissingRecording(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.archiver(t, nil).Run(context.Background(), meetingID)
	require.ErrorIs(t, err, services.ErrNotFound)
}

func indexOf(list []string, value string) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return -1
}

func outcomeValue(t *testing.T, m *metrics.Metrics, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "ocingest_last_run_outcome" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("outcome %q not exported", outcome)
	return 0
}
