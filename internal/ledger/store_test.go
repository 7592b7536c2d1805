package ledger_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"ocingest/internal/ledger"
	"ocingest/internal/testsupport"
)

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	if store.Path() != cfg.LedgerPath() {
		t.Fatalf("unexpected path %q", store.Path())
	}
	if _, err := os.Stat(cfg.LedgerPath()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	// Reopening an initialized database must accept the stored version.
	again, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_ = again.Close()
}

func TestBeginFinishLatest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.Begin(ctx, "meeting-1700000000000")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if run.ID == 0 || run.Status != ledger.StatusRunning {
		t.Fatalf("unexpected run: %+v", run)
	}

	outcome := ledger.Outcome{
		Status:         ledger.StatusIngested,
		MediaPackageID: "mp-1",
		WorkflowID:     "42",
		TrackCount:     3,
	}
	if err := store.Finish(ctx, run.ID, outcome); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	latest, err := store.Latest(ctx, "meeting-1700000000000")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a run")
	}
	if latest.Status != ledger.StatusIngested || latest.MediaPackageID != "mp-1" || latest.WorkflowID != "42" || latest.TrackCount != 3 {
		t.Fatalf("unexpected latest: %+v", latest)
	}
	if latest.FinishedAt == nil {
		t.Fatal("expected finished timestamp")
	}
	if latest.Duration() < 0 {
		t.Fatalf("negative duration: %v", latest.Duration())
	}
}

func TestLatestMissingMeeting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)

	run, err := store.Latest(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil run, got %+v", run)
	}
}

func TestFinishRejectsNonTerminalAndUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	run, err := store.Begin(ctx, "m-1")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Finish(ctx, run.ID, ledger.Outcome{Status: ledger.StatusRunning}); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
	err = store.Finish(ctx, run.ID+100, ledger.Outcome{Status: ledger.StatusFailed})
	if !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestBeginRequiresMeetingID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	if _, err := store.Begin(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank meeting id")
	}
}

func TestListOrdersNewestFirstAndFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	for _, meeting := range []string{"a", "b", "a"} {
		run, err := store.Begin(ctx, meeting)
		if err != nil {
			t.Fatalf("Begin %s: %v", meeting, err)
		}
		if err := store.Finish(ctx, run.ID, ledger.Outcome{Status: ledger.StatusSkipped, Detail: "nothing to ingest"}); err != nil {
			t.Fatalf("Finish: %v", err)
		}
	}

	all, err := store.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].ID < all[1].ID || all[1].ID < all[2].ID {
		t.Fatalf("expected newest first, got ids %d,%d,%d", all[0].ID, all[1].ID, all[2].ID)
	}

	onlyA, err := store.List(ctx, "a", 0)
	if err != nil {
		t.Fatalf("List a: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 runs for a, got %d", len(onlyA))
	}
	for _, run := range onlyA {
		if run.MeetingID != "a" || run.Detail != "nothing to ingest" {
			t.Fatalf("unexpected run: %+v", run)
		}
	}

	limited, err := store.List(ctx, "", 1)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != all[0].ID {
		t.Fatalf("unexpected limited list: %+v", limited)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[ledger.StatusSkipped] != 3 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestMarkAbandoned(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if _, err := store.Begin(ctx, "m-2"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	n, err := store.MarkAbandoned(ctx, "m-2")
	if err != nil {
		t.Fatalf("MarkAbandoned: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 abandoned run, got %d", n)
	}
	latest, err := store.Latest(ctx, "m-2")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %q", latest.Status)
	}
}
