package mailbox

import (
	"context"

	"github.com/Iron-Ham/raven/internal/logging"
)

// Locker serializes load-modify-save cycles across processes. LockContext
// must give up with ctx.Err() once ctx is done.
type Locker interface {
	LockContext(ctx context.Context) error
	Unlock() error
}

// Option configures a Keeper.
type Option func(*Keeper)

// WithLogger sets the logger used for save retries and lock failures.
func WithLogger(log *logging.Logger) Option {
	return func(k *Keeper) {
		if log != nil {
			k.log = log
		}
	}
}

// WithLocker replaces the default flock on home/mailbox.lock.
func WithLocker(l Locker) Option {
	return func(k *Keeper) {
		if l != nil {
			k.lock = l
		}
	}
}
