package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process is already archiving the meeting.
var ErrLocked = errors.New("meeting is already being archived")

// Lock is an exclusive advisory lock on one meeting.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file for a meeting below lockDir.
func LockPath(lockDir, meetingID string) string {
	return filepath.Join(lockDir, sanitizeName(meetingID)+".lock")
}

// AcquireLock takes the meeting lock without blocking.
func AcquireLock(lockDir, meetingID string) (*Lock, error) {
	if strings.TrimSpace(meetingID) == "" {
		return nil, errors.New("meeting id is required")
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := LockPath(lockDir, meetingID)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, meetingID)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}
