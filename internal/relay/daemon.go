package relay

import (
	"context"
	"net"
	"sync"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/mailbox"
)

// Daemon runs the remote and local listeners side by side over one
// configuration value.
type Daemon struct {
	cfg    config.Config
	keeper *mailbox.Keeper
	remote *RemoteListener
	local  *LocalListener
	log    *logging.Logger
}

// NewDaemon wires a daemon whose mailbox lives under cfg.Home on fs.
func NewDaemon(cfg config.Config, fs afero.Fs, log *logging.Logger) *Daemon {
	if log == nil {
		log = logging.NopLogger()
	}
	keeper := mailbox.NewKeeper(fs, cfg.Home, mailbox.WithLogger(log))
	return &Daemon{
		cfg:    cfg,
		keeper: keeper,
		remote: NewRemoteListener(cfg, keeper, log),
		local:  NewLocalListener(cfg, NewDispatcher(cfg.Relay, log), log),
		log:    log.WithComponent("daemon"),
	}
}

// Listen binds both endpoints. If the second bind fails the first listener
// is closed again.
func (d *Daemon) Listen() error {
	if err := d.remote.Listen(); err != nil {
		return err
	}
	if err := d.local.Listen(); err != nil {
		_ = d.remote.Close()
		return err
	}
	return nil
}

// RemoteAddr returns the bound remote address, or nil before Listen.
func (d *Daemon) RemoteAddr() net.Addr {
	return d.remote.Addr()
}

// LocalAddr returns the bound local address, or nil before Listen.
func (d *Daemon) LocalAddr() net.Addr {
	return d.local.Addr()
}

// Run serves both listeners until ctx is canceled, binding them first if
// Listen has not been called. A bind failure is returned before anything
// is served.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Listen(); err != nil {
		return err
	}

	d.keeper.Start()
	defer d.keeper.Stop()

	d.log.Info("daemon started",
		"home", d.cfg.Home,
		"remote", d.RemoteAddr().String(),
		"local", d.LocalAddr().String(),
		"max_connections", d.cfg.Relay.MaxConnections,
	)

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := d.remote.Serve(ctx); err != nil {
			d.log.Error("remote listener stopped", "error", err)
		}
	})
	wg.Go(func() {
		if err := d.local.Serve(ctx); err != nil {
			d.log.Error("local listener stopped", "error", err)
		}
	})
	wg.Wait()

	d.log.Info("daemon stopped")
	return nil
}
