package staging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ocingest/internal/logging"
	"ocingest/internal/services"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, "upload_tmp", time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldScratchOnly(t *testing.T) {
	rawDir := t.TempDir()

	oldScratch := filepath.Join(rawDir, "meeting-old", "upload_tmp")
	recentScratch := filepath.Join(rawDir, "meeting-new", "upload_tmp")
	for _, dir := range []string{oldScratch, recentScratch} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldScratch, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), rawDir, "upload_tmp", time.Hour, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldScratch {
		t.Fatalf("expected %s removed, got %v", oldScratch, result.Removed)
	}
	if _, err := os.Stat(oldScratch); !os.IsNotExist(err) {
		t.Fatal("old scratch should have been removed")
	}
	if _, err := os.Stat(filepath.Join(rawDir, "meeting-old")); err != nil {
		t.Fatal("raw meeting directory must survive scratch cleanup")
	}
	if _, err := os.Stat(recentScratch); err != nil {
		t.Fatal("recent scratch should still exist")
	}
}

func TestWorkspacePrepareAndCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "meeting", "upload_tmp")
	ws := NewWorkspace(dir, nil)

	if err := ws.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if got := ws.Path("slides", "a"); got != filepath.Join(dir, "slides", "a") {
		t.Fatalf("unexpected path %q", got)
	}
	if err := os.WriteFile(ws.Path("cutting.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("expected scratch removed")
	}
	if err := ws.Cleanup(); err != nil {
		t.Fatalf("second Cleanup should be a no-op: %v", err)
	}
}

func TestWorkspacePrepareRequiresDir(t *testing.T) {
	if err := NewWorkspace("  ", nil).Prepare(); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	lockDir := filepath.Join(t.TempDir(), "locks")

	first, err := AcquireLock(lockDir, "abc-1700000000000")
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}
	if first.Path() != filepath.Join(lockDir, "abc-1700000000000.lock") {
		t.Fatalf("unexpected lock path %q", first.Path())
	}

	if _, err := AcquireLock(lockDir, "abc-1700000000000"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	other, err := AcquireLock(lockDir, "other-1")
	if err != nil {
		t.Fatalf("lock on a different meeting should succeed: %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := AcquireLock(lockDir, "abc-1700000000000")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestLockPathSanitizesSeparators(t *testing.T) {
	got := LockPath("/locks", "../x/y")
	if got != filepath.Join("/locks", ".._x_y.lock") {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestDeleteRawAppendsMeetingID(t *testing.T) {
	var gotName string
	var gotArgs []string
	useHelperCommand(t, "ok", &gotName, &gotArgs)

	err := DeleteRaw(context.Background(), []string{"sudo", "bbb-record", "--delete"}, "m-1", logging.NewNop())
	if err != nil {
		t.Fatalf("DeleteRaw: %v", err)
	}
	if gotName != "sudo" {
		t.Fatalf("unexpected binary %q", gotName)
	}
	if strings.Join(gotArgs, " ") != "bbb-record --delete m-1" {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestDeleteRawFailure(t *testing.T) {
	var gotName string
	var gotArgs []string
	useHelperCommand(t, "fail", &gotName, &gotArgs)

	err := DeleteRaw(context.Background(), []string{"bbb-record", "--delete"}, "m-1", logging.NewNop())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestDeleteRawRejectsEmptyInputs(t *testing.T) {
	if err := DeleteRaw(context.Background(), nil, "m-1", nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if err := DeleteRaw(context.Background(), []string{"rm"}, " ", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func useHelperCommand(t *testing.T, mode string, name *string, args *[]string) {
	t.Helper()
	original := commandContext
	t.Cleanup(func() { commandContext = original })
	commandContext = func(ctx context.Context, bin string, cmdArgs ...string) *exec.Cmd {
		*name = bin
		*args = append([]string(nil), cmdArgs...)
		helperArgs := append([]string{"-test.run=TestHelperProcess", "--", bin}, cmdArgs...)
		cmd := exec.CommandContext(ctx, os.Args[0], helperArgs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "STAGING_HELPER_MODE="+mode)
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("STAGING_HELPER_MODE") == "fail" {
		fmt.Fprintln(os.Stderr, "no such recording")
		os.Exit(1)
	}
	os.Exit(0)
}
