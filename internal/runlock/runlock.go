// Package runlock enforces single-instance execution per runs directory.
// Two concurrent runs would fight over GPU memory and artifact paths, so
// the runner takes an advisory file lock before any step executes.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFile is the lock's filename inside the runs directory.
const LockFile = "slate.lock"

// ErrHeld reports that another slate process owns the lock.
var ErrHeld = errors.New("another slate run is already in progress")

// Lock is an advisory file lock scoped to a runs directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock under runsDir without acquiring it.
func New(runsDir string) *Lock {
	path := filepath.Join(runsDir, LockFile)
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. ErrHeld is returned when
// another process already owns it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrHeld
	}
	return nil
}

// Release drops the lock. Releasing a lock that was never acquired is a
// no-op.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
