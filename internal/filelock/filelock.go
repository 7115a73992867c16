// Package filelock provides cross-process mutual exclusion over a directory
// using flock(2). The daemon and the rv front-end both take the lock around
// every load-modify-save cycle of the mailbox document.
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultName is the lock file created inside the guarded directory.
const DefaultName = "mailbox.lock"

// pollInterval is how often LockContext retries a contended lock.
const pollInterval = 20 * time.Millisecond

// FileLock is an exclusive advisory lock on a file inside a directory.
// A FileLock is not reentrant and must not be shared between goroutines
// without external synchronization.
type FileLock struct {
	path string
	file *os.File
}

// New returns a FileLock on dir/DefaultName.
func New(dir string) *FileLock {
	return &FileLock{path: filepath.Join(dir, DefaultName)}
}

// TryLock attempts to acquire the lock without blocking. It reports false
// when another holder has it.
func (fl *FileLock) TryLock() (bool, error) {
	f, err := fl.open()
	if err != nil {
		return false, err
	}

	if err := flock(f, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return false, nil
		}
		return false, fmt.Errorf("flock %s: %w", fl.path, err)
	}
	fl.file = f
	return true, nil
}

// LockContext polls TryLock until the lock is acquired or ctx is done. The
// directory and lock file are created if needed.
func (fl *FileLock) LockContext(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := fl.TryLock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Unlock releases the lock. Unlocking a lock that is not held is a no-op.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}
	f := fl.file
	fl.file = nil

	if err := flock(f, unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("funlock %s: %w", fl.path, err)
	}
	return f.Close()
}

func (fl *FileLock) open() (*os.File, error) {
	if fl.file != nil {
		return nil, fmt.Errorf("lock %s already held", fl.path)
	}
	if err := os.MkdirAll(filepath.Dir(fl.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}

// flock retries on EINTR, which flock(2) can return when the process
// receives a signal.
func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}
