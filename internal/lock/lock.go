// Package lock serializes installs that target the same service name across
// processes.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("lock is held by another process")

// Lock is an exclusive advisory lock on a file.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock for name in dir without waiting. The lock file name is
// the lower-cased name, so names differing only in case share a lock.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating lock dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, strings.ToLower(name)+".lock")
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrHeld)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release unlocks and closes the lock file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
