package relay

import (
	"context"
	"net"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/wire"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Listen binds a TCP listener on address. name identifies the listener in
// the returned BindError.
func Listen(name, address string) (net.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, errors.NewBindError(address, err).WithListener(name)
	}
	return ln, nil
}

// connHandler processes one accepted connection. The connection is closed
// when it returns.
type connHandler func(ctx context.Context, conn net.Conn)

// serve accepts on ln until ctx is canceled or ln is closed, running h on
// at most maxConns goroutines. It returns after in-flight handlers finish.
// Canceling ctx also expires the deadlines of open connections.
func serve(ctx context.Context, ln net.Listener, name string, maxConns int, log *logging.Logger, h connHandler) error {
	p := pool.New().WithMaxGoroutines(max(maxConns, 1))
	defer p.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			log.Warn("accept failed", "error", errors.NewAcceptError(name, err), "retry_in", backoff.String())

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		// Blocks while the pool is full.
		p.Go(func() {
			defer func() { _ = conn.Close() }()
			expire := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
			defer expire()
			h(ctx, conn)
		})
	}
}

// readEnvelope reads one envelope's bytes from conn under the relay limits.
func readEnvelope(conn net.Conn, rc config.RelayConfig) ([]byte, error) {
	if d := rc.ReadTimeout(); d > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
			return nil, err
		}
	}
	return wire.ReadAll(conn, rc.MaxEnvelopeBytes)
}

// logFailure logs a per-connection failure at the level its severity calls
// for. Errors outside the raven taxonomy log as errors.
func logFailure(log *logging.Logger, msg string, err error, args ...any) {
	sev := errors.GetSeverity(err)
	args = append([]any{"error", err, "severity", sev.String()}, args...)

	switch sev {
	case errors.SeverityDebug:
		log.Debug(msg, args...)
	case errors.SeverityInfo:
		log.Info(msg, args...)
	case errors.SeverityWarning:
		log.Warn(msg, args...)
	default:
		log.Error(msg, args...)
	}
}

// listenOnce binds endpoint into *ln unless it is already bound.
func listenOnce(ln *net.Listener, name, endpoint string, log *logging.Logger) error {
	if *ln != nil {
		return nil
	}
	l, err := Listen(name, endpoint)
	if err != nil {
		return err
	}
	*ln = l
	log.Info("listening", "address", l.Addr().String())
	return nil
}
