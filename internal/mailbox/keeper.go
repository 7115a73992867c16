package mailbox

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/filelock"
	"github.com/Iron-Ham/raven/internal/logging"
)

// Keeper owns the mailbox document for one process. Every mutation is
// queued to a single goroutine, which takes the cross-process lock, loads the
// document, applies the mutation and saves, so concurrent connections and a
// concurrently running front-end never lose each other's updates.
type Keeper struct {
	fs   afero.Fs
	home string
	lock Locker
	log  *logging.Logger

	reqs      chan request
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

type request struct {
	ctx    context.Context
	fn     func(*Mailbox) error
	write  bool
	result chan error
}

// NewKeeper returns a Keeper for the mailbox under home. Call Start before
// submitting work.
func NewKeeper(fs afero.Fs, home string, opts ...Option) *Keeper {
	k := &Keeper{
		fs:   fs,
		home: home,
		log:  logging.NopLogger(),
		reqs: make(chan request),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.lock == nil {
		k.lock = filelock.New(home)
	}
	k.log = k.log.WithComponent("mailbox")
	return k
}

// Home returns the directory the Keeper manages.
func (k *Keeper) Home() string {
	return k.home
}

// Fs returns the filesystem the Keeper reads and writes.
func (k *Keeper) Fs() afero.Fs {
	return k.fs
}

// Start launches the owning goroutine. It is safe to call more than once.
func (k *Keeper) Start() {
	k.startOnce.Do(func() {
		k.wg.Go(k.loop)
	})
}

// Stop waits for the in-flight request to finish and rejects later ones
// with ErrKeeperStopped.
func (k *Keeper) Stop() {
	k.stopOnce.Do(func() {
		close(k.done)
	})
	k.wg.Wait()
}

// Update runs fn against a freshly loaded mailbox and saves the result. If
// fn returns an error nothing is saved and the error is returned.
func (k *Keeper) Update(ctx context.Context, fn func(*Mailbox) error) error {
	return k.submit(ctx, fn, true)
}

// View runs fn against a freshly loaded mailbox without saving.
func (k *Keeper) View(ctx context.Context, fn func(*Mailbox) error) error {
	return k.submit(ctx, fn, false)
}

// AddMessage appends one message and saves.
func (k *Keeper) AddMessage(ctx context.Context, from string, when time.Time, text string) error {
	return k.Update(ctx, func(m *Mailbox) error {
		m.AddMessage(from, when, text)
		return nil
	})
}

// AddFile appends one attachment record and saves.
func (k *Keeper) AddFile(ctx context.Context, from string, when time.Time, path string) error {
	return k.Update(ctx, func(m *Mailbox) error {
		m.AddFile(from, when, path)
		return nil
	})
}

func (k *Keeper) submit(ctx context.Context, fn func(*Mailbox) error, write bool) error {
	req := request{ctx: ctx, fn: fn, write: write, result: make(chan error, 1)}

	select {
	case k.reqs <- req:
	case <-k.done:
		return errors.ErrKeeperStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.result
}

func (k *Keeper) loop() {
	for {
		select {
		case <-k.done:
			return
		case req := <-k.reqs:
			req.result <- k.apply(req)
		}
	}
}

func (k *Keeper) apply(req request) error {
	if err := req.ctx.Err(); err != nil {
		return err
	}

	if err := k.lock.LockContext(req.ctx); err != nil {
		if ctxErr := req.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewPersistenceError("lock", k.home, err)
	}
	defer func() {
		if err := k.lock.Unlock(); err != nil {
			k.log.Warn("failed to release mailbox lock", "error", err)
		}
	}()

	m, err := Open(k.fs, k.home)
	if err != nil {
		return err
	}
	if err := req.fn(m); err != nil {
		return err
	}
	if !req.write {
		return nil
	}
	return k.save(m)
}

// save retries a failed save once before reporting it.
func (k *Keeper) save(m *Mailbox) error {
	err := m.Save(k.fs, k.home)
	if err == nil {
		return nil
	}
	k.log.Warn("mailbox save failed, retrying", "error", err)

	if err := m.Save(k.fs, k.home); err != nil {
		k.log.Error("mailbox save failed", "error", err, "messages", len(m.Messages), "files", len(m.Files))
		return err
	}
	return nil
}
