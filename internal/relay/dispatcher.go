package relay

import (
	"context"
	"net"
	"net/netip"
	"strings"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/wire"
)

// Dispatcher delivers transfer envelopes to peers over a fresh connection
// each time.
type Dispatcher struct {
	dialer net.Dialer
	log    *logging.Logger
}

// NewDispatcher returns a Dispatcher using the relay dial timeout.
func NewDispatcher(rc config.RelayConfig, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Dispatcher{
		dialer: net.Dialer{Timeout: rc.DialTimeout()},
		log:    log.WithComponent("dispatch"),
	}
}

// Dispatch sends t to to:port. A nil error means the bytes were handed to
// the transport; the peer does not acknowledge them. An invalid destination
// is reported before any network I/O.
func (d *Dispatcher) Dispatch(ctx context.Context, to string, port uint16, t wire.Transfer) error {
	dest, err := ParseDestination(to, port)
	if err != nil {
		return err
	}
	frame, err := wire.EncodeTransfer(t)
	if err != nil {
		return err
	}

	target := dest.String()
	log := d.log.WithPeer(target)

	conn, err := d.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		log.Warn("connect failed", "error", err)
		return errors.NewConnectError(target, "dial", err)
	}
	defer func() { _ = conn.Close() }()

	if err := wire.WriteAndClose(conn, frame); err != nil {
		log.Warn("write failed", "error", err)
		return errors.NewConnectError(target, "write", err)
	}

	log.Info("envelope sent", "bytes", len(frame))
	return nil
}

// ParseDestination checks that to is an IP literal and port is non-zero.
func ParseDestination(to string, port uint16) (netip.AddrPort, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(to))
	if err != nil {
		return netip.AddrPort{}, errors.NewValidationError("destination must be an IP address").
			WithField("to").
			WithValue(to).
			WithCause(errors.ErrInvalidAddress)
	}
	if port == 0 {
		return netip.AddrPort{}, errors.NewValidationError("port must be between 1 and 65535").
			WithField("port").
			WithValue(port).
			WithCause(errors.ErrInvalidPort)
	}
	return netip.AddrPortFrom(addr, port), nil
}
