package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ocingest/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLog(t, path, "a\nb\nc\n")

	chunk, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(chunk.Lines) != 2 || chunk.Lines[0] != "b" || chunk.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}
	if chunk.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", chunk.Offset)
	}

	chunk, err = logs.Last(path, 10)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(chunk.Lines) != 3 {
		t.Fatalf("expected every line when n exceeds file, got %#v", chunk.Lines)
	}
}

func TestLastMissingFile(t *testing.T) {
	chunk, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("expected empty chunk, got %#v", chunk)
	}
}

func TestSinceRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLog(t, path, "first\nsecond\n")

	chunk, err := logs.Since(path, 6)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Lines[0] != "second" {
		t.Fatalf("unexpected lines: %#v", chunk.Lines)
	}

	writeLog(t, path, "new\n")
	chunk, err = logs.Since(path, chunk.Offset)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(chunk.Lines) != 1 || chunk.Lines[0] != "new" {
		t.Fatalf("expected read from start after truncation, got %#v", chunk.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLog(t, path, "start\n")
	start, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, start.Offset, 10*time.Millisecond, func(lines []string) error {
			mu.Lock()
			got = append(got, lines...)
			mu.Unlock()
			cancel()
			return nil
		})
	}()

	time.Sleep(30 * time.Millisecond)
	appendLog(t, path, "later\n")

	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected followed lines: %#v", got)
	}
}

func TestFollowStopsOnEmitError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	writeLog(t, path, "one\n")
	boom := errors.New("closed pipe")

	err := logs.Follow(context.Background(), path, 0, 10*time.Millisecond, func([]string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected emit error, got %v", err)
	}
}
