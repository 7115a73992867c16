package filelock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLock_LockUnlock(t *testing.T) {
	dir := t.TempDir()
	fl := New(dir)

	if err := fl.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, DefaultName)); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}

	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestFileLock_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "home")
	fl := New(dir)

	if err := fl.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext: %v", err)
	}
	defer func() { _ = fl.Unlock() }()

	if _, err := os.Stat(filepath.Join(dir, DefaultName)); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}
}

func TestFileLock_UnlockWithoutLock(t *testing.T) {
	fl := New(t.TempDir())
	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock without Lock should not error: %v", err)
	}
}

func TestFileLock_DoubleLockRejected(t *testing.T) {
	fl := New(t.TempDir())
	if err := fl.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext: %v", err)
	}
	defer func() { _ = fl.Unlock() }()

	if _, err := fl.TryLock(); err == nil {
		t.Error("second TryLock on the same FileLock should fail")
	}
}

// flock locks belong to the open file description, so two FileLocks in one
// process contend just like two processes do.
func TestFileLock_TryLockContended(t *testing.T) {
	dir := t.TempDir()
	first := New(dir)
	second := New(dir)

	ok, err := first.TryLock()
	if err != nil || !ok {
		t.Fatalf("first TryLock = %v, %v", ok, err)
	}

	ok, err = second.TryLock()
	if err != nil {
		t.Fatalf("second TryLock error: %v", err)
	}
	if ok {
		t.Fatal("second TryLock acquired a held lock")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	ok, err = second.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock after release = %v, %v", ok, err)
	}
	_ = second.Unlock()
}

func TestFileLock_LockContextCanceled(t *testing.T) {
	dir := t.TempDir()
	holder := New(dir)
	if err := holder.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	waiter := New(dir)
	if err := waiter.LockContext(ctx); err != context.DeadlineExceeded {
		t.Errorf("LockContext() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestFileLock_LockContextAcquiresAfterRelease(t *testing.T) {
	dir := t.TempDir()
	holder := New(dir)
	if err := holder.LockContext(context.Background()); err != nil {
		t.Fatalf("LockContext: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = holder.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiter := New(dir)
	if err := waiter.LockContext(ctx); err != nil {
		t.Fatalf("LockContext() error = %v", err)
	}
	_ = waiter.Unlock()
}
