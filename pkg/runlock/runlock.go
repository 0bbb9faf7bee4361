// Package runlock guards a destination tree against concurrent flattening
// runs. Two runs writing into the same destination would interleave
// directory creation and file transfers, so the destination root carries an
// advisory lock file for the duration of a run.
package runlock

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"
)

const lockFileName = ".flatr.lock"

// Lock is a held destination lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire takes an exclusive, non-blocking lock inside destDir. It fails
// immediately when another run holds the lock rather than queueing behind
// it.
func Acquire(destDir string) (*Lock, error) {
	path := filepath.Join(destDir, lockFileName)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", path, err)
	}
	if !acquired {
		return nil, errors.Errorf("destination %s is locked by another run", destDir)
	}
	return &Lock{fl: fl, path: path}, nil
}

// Path returns the lock file's path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock. The lock file itself is left behind; only the
// advisory lock matters.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return errors.Errorf("unlocking %s: %w", l.path, err)
	}
	return nil
}
