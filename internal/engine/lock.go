package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LockFile is created in the content root while an operation runs.
const LockFile = ".roadmap.lock"

// staleLockAge is how old a lock file must be before it is taken over.
const staleLockAge = 15 * time.Minute

// ErrLocked indicates another process holds the content root.
var ErrLocked = errors.New("engine: content root is locked by another run")

// acquireFileLock creates the lock file exclusively and returns a release
// func. A lock older than staleLockAge is assumed abandoned.
func acquireFileLock(dir string, now time.Time) (func(), error) {
	path := filepath.Join(dir, LockFile)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%s %s\n", strconv.Itoa(os.Getpid()), now.UTC().Format(time.RFC3339))
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("engine: create lock: %w", err)
		}
		info, statErr := os.Stat(path)
		if statErr != nil || now.Sub(info.ModTime()) < staleLockAge {
			break
		}
		os.Remove(path)
	}
	return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
}
