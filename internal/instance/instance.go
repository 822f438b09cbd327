// Package instance keeps two bot processes from sharing one data directory.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const lockName = "bot.lock"

// ErrAlreadyRunning reports that a lock marker already exists, meaning another
// live process owns the data directory.
var ErrAlreadyRunning = errors.New("instance: lock file exists, another instance is running")

// Guard is a filesystem lock marker holding the owner pid. It is removed on
// Release; a process killed with SIGKILL strands the file and it must be
// cleaned up by hand.
type Guard struct {
	path    string
	release sync.Once
}

// Acquire atomically creates the lock marker in dir. It fails with
// ErrAlreadyRunning when a marker is already present, whatever its content.
func Acquire(dir string) (*Guard, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, lockName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
	}

	return &Guard{path: path}, nil
}

// Release removes the lock marker. Safe to call more than once; only the
// first call touches the filesystem.
func (g *Guard) Release() {
	g.release.Do(func() {
		os.Remove(g.path)
	})
}

// Path returns the location of the lock marker.
func (g *Guard) Path() string { return g.path }

// Active reports whether a lock marker exists under dir.
func Active(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, lockName))
	return err == nil
}

// OwnerPID reads the pid recorded in the marker under dir, or 0 when no
// marker exists.
func OwnerPID(dir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, lockName))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse lock file: %w", err)
	}
	return pid, nil
}
