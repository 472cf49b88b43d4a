package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockFileSuffix = ".lock"

// LockRetryDelay is how often a waiting Lock or RLock polls the lock file.
var LockRetryDelay = 250 * time.Millisecond

// DBLock guards the catalogue file. Imports hold it exclusively, readers
// that need a consistent view of several sources hold it shared.
type DBLock struct {
	lock *flock.Flock
	path string
}

// NewDBLock returns the lock that sits next to dbPath.
func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Path is the lock file location.
func (l *DBLock) Path() string { return l.path }

// Lock takes the exclusive lock, waiting until ctx is done.
func (l *DBLock) Lock(ctx context.Context) error {
	return l.acquire(ctx, "exclusive", l.lock.TryLock, l.lock.TryLockContext)
}

// RLock takes the shared lock, waiting until ctx is done.
func (l *DBLock) RLock(ctx context.Context) error {
	return l.acquire(ctx, "shared", l.lock.TryRLock, l.lock.TryRLockContext)
}

func (l *DBLock) acquire(ctx context.Context, mode string, try func() (bool, error), wait func(context.Context, time.Duration) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	locked, err := try()
	if err != nil {
		return fmt.Errorf("failed to acquire %s lock on %s: %w", mode, l.path, err)
	}
	if locked {
		return nil
	}

	Log.Warnf("Catalogue is locked by another dobromatch process (%s), waiting for it to finish...", l.path)
	locked, err = wait(ctx, LockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire %s lock on %s after waiting: %w", mode, l.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire %s lock on %s", mode, l.path)
	}
	return nil
}

// Unlock releases the lock. Releasing a lock that is not held is a no-op.
func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the catalogue path. Empty means the per-user default.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "dobromatch", "dobromatch.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
