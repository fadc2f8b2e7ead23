package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	mederrors "github.com/medlit/medsearch/internal/errors"
)

// BuildLock provides cross-process locking for index builds using
// gofrs/flock. Each process owns one build; a second builder pointed
// at the same directory must fail fast instead of corrupting the
// artifacts. Works on all platforms (Unix, Linux, macOS, Windows).
type BuildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewBuildLock creates a lock for the given index directory.
// The lock file lives at <dir>/.build.lock
func NewBuildLock(dir string) *BuildLock {
	lockPath := filepath.Join(dir, ".build.lock")
	return &BuildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire attempts to take the exclusive build lock without blocking.
// A lock held by another process is reported as an index-locked error.
func (l *BuildLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if !acquired {
		return mederrors.New(mederrors.ErrCodeIndexLocked,
			fmt.Sprintf("another build holds the lock at %s", l.path), nil)
	}

	l.locked = true
	return nil
}

// Release releases the build lock. Safe to call on an unlocked lock.
func (l *BuildLock) Release() error {
	if !l.locked {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("failed to release build lock: %w", err)
	}

	l.locked = false
	return nil
}

// Path returns the lock file path.
func (l *BuildLock) Path() string {
	return l.path
}
