package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ocingest/internal/logging"
)

// Workspace is the scratch directory of one meeting.
type Workspace struct {
	dir    string
	logger *slog.Logger
}

// NewWorkspace returns a workspace rooted at dir.
func NewWorkspace(dir string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workspace{dir: strings.TrimSpace(dir), logger: logger}
}

// Dir returns the scratch directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path joins elements below the scratch directory.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// Prepare creates the scratch directory.
func (w *Workspace) Prepare() error {
	if w.dir == "" {
		return errors.New("scratch directory is empty")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}
	return nil
}

// Cleanup removes the scratch directory and everything below it. A missing
// directory is not an error.
func (w *Workspace) Cleanup() error {
	if w.dir == "" {
		return nil
	}
	size, _ := dirSize(w.dir)
	if err := os.RemoveAll(w.dir); err != nil {
		logging.WarnWithContext(w.logger, "failed to remove scratch directory", "scratch_cleanup_failed",
			logging.String("path", w.dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check raw_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return fmt.Errorf("remove scratch directory: %w", err)
	}
	w.logger.Info("removed scratch directory",
		logging.String("path", w.dir),
		logging.Int64("bytes", size),
		logging.String(logging.FieldEventType, "scratch_cleanup"),
	)
	return nil
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
