package relay

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/filename"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/mailbox"
	"github.com/Iron-Ham/raven/internal/wire"
)

// RemoteListener accepts transfer envelopes from peers and files them in
// the mailbox. A failed connection is logged and dropped; the loop keeps
// accepting.
type RemoteListener struct {
	cfg    config.Config
	keeper *mailbox.Keeper
	log    *logging.Logger
	ln     net.Listener
	now    func() time.Time
}

// NewRemoteListener returns a listener bound to cfg.Remote once Listen or
// Serve is called. keeper must be started before connections arrive.
func NewRemoteListener(cfg config.Config, keeper *mailbox.Keeper, log *logging.Logger) *RemoteListener {
	if log == nil {
		log = logging.NopLogger()
	}
	return &RemoteListener{
		cfg:    cfg,
		keeper: keeper,
		log:    log.WithComponent("remote"),
		now:    time.Now,
	}
}

// Listen binds the remote endpoint.
func (l *RemoteListener) Listen() error {
	return listenOnce(&l.ln, "remote", l.cfg.Remote.Endpoint(), l.log)
}

// Addr returns the bound address, or nil before Listen.
func (l *RemoteListener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close stops accepting.
func (l *RemoteListener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// Serve accepts peers until ctx is canceled.
func (l *RemoteListener) Serve(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return serve(ctx, l.ln, "remote", l.cfg.Relay.MaxConnections, l.log, l.handle)
}

func (l *RemoteListener) handle(ctx context.Context, conn net.Conn) {
	peer := conn.RemoteAddr().String()
	log := l.log.WithPeer(peer)

	b, err := readEnvelope(conn, l.cfg.Relay)
	if err != nil {
		log.Warn("read failed", "error", err)
		return
	}
	log = log.With("bytes", len(b))

	t, err := wire.DecodeTransfer(b)
	if err != nil {
		var de *errors.DecodeError
		if errors.As(err, &de) {
			err = de.WithPeer(peer)
		}
		logFailure(log, "decode failed", err)
		return
	}

	// A fully read envelope is stored even if shutdown starts meanwhile.
	if err := l.deliver(context.WithoutCancel(ctx), peer, t); err != nil {
		logFailure(log, "delivery failed", err, "retryable", errors.IsRetryable(err))
	}
}

// deliver files t in the mailbox as coming from the peer address from.
func (l *RemoteListener) deliver(ctx context.Context, from string, t wire.Transfer) error {
	when := l.now()
	log := l.log.WithPeer(from)

	switch v := t.(type) {
	case wire.Text:
		if err := l.keeper.AddMessage(ctx, from, when, v.Text); err != nil {
			return err
		}
		log.Info("message stored", "bytes", len(v.Text))
		return nil
	case wire.File:
		path, err := l.storeFile(ctx, from, when, v)
		if err != nil {
			return err
		}
		log.Info("file stored", "name", v.Name, "path", path, "bytes", len(v.Content))
		return nil
	default:
		return fmt.Errorf("unhandled transfer envelope %T", t)
	}
}

// storeFile writes the attachment under <home>/data and records it. Picking
// the name, writing and recording all happen inside one mailbox update so
// concurrent arrivals of the same name land on distinct paths. If the
// record cannot be saved the written attachment is removed again.
func (l *RemoteListener) storeFile(ctx context.Context, from string, when time.Time, f wire.File) (string, error) {
	fs := l.keeper.Fs()
	dir := mailbox.DataPath(l.keeper.Home())
	name := filename.Sanitize(f.Name)

	var written string
	err := l.keeper.Update(ctx, func(m *mailbox.Mailbox) error {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return errors.NewPersistenceError("mkdir", dir, err)
		}
		path, err := filename.Disambiguate(fs, filepath.Join(dir, name))
		if err != nil {
			return errors.NewPersistenceError("stat", dir, err)
		}
		if err := afero.WriteFile(fs, path, f.Content, 0o644); err != nil {
			return errors.NewPersistenceError("write", path, err)
		}
		written = path
		m.AddFile(from, when, path)
		return nil
	})
	if err != nil {
		if written != "" {
			if rmErr := fs.Remove(written); rmErr != nil && !os.IsNotExist(rmErr) {
				l.log.WithPeer(from).Warn("failed to remove unrecorded attachment", "path", written, "error", rmErr)
			}
		}
		return "", err
	}
	return written, nil
}
