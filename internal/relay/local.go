package relay

import (
	"context"
	"fmt"
	"net"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/wire"
)

// LocalListener serves control requests from the rv front-end. Each
// connection carries one request and receives exactly one reply.
type LocalListener struct {
	cfg        config.Config
	dispatcher *Dispatcher
	log        *logging.Logger
	ln         net.Listener
}

// NewLocalListener returns a listener for cfg.Local that forwards sends
// through d.
func NewLocalListener(cfg config.Config, d *Dispatcher, log *logging.Logger) *LocalListener {
	if log == nil {
		log = logging.NopLogger()
	}
	return &LocalListener{
		cfg:        cfg,
		dispatcher: d,
		log:        log.WithComponent("local"),
	}
}

// Listen binds the local endpoint.
func (l *LocalListener) Listen() error {
	return listenOnce(&l.ln, "local", l.cfg.Local.Endpoint(), l.log)
}

// Addr returns the bound address, or nil before Listen.
func (l *LocalListener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close stops accepting.
func (l *LocalListener) Close() error {
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// Serve answers control requests until ctx is canceled.
func (l *LocalListener) Serve(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return serve(ctx, l.ln, "local", l.cfg.Relay.MaxConnections, l.log, l.handle)
}

func (l *LocalListener) handle(ctx context.Context, conn net.Conn) {
	log := l.log.WithPeer(conn.RemoteAddr().String())

	reply := l.process(ctx, conn, log)
	frame, err := wire.EncodeControl(reply)
	if err != nil {
		log.Error("encode reply failed", "error", err)
		return
	}
	if err := wire.WriteAndClose(conn, frame); err != nil {
		log.Warn("reply failed", "error", err)
	}
}

// process turns one request into its reply.
func (l *LocalListener) process(ctx context.Context, conn net.Conn, log *logging.Logger) wire.Control {
	b, err := readEnvelope(conn, l.cfg.Relay)
	if err != nil {
		log.Warn("read failed", "error", err)
		return wire.ErrorReply{Message: err.Error()}
	}

	log = log.With("bytes", len(b))

	req, err := wire.DecodeControl(b)
	if err != nil {
		logFailure(log, "decode failed", err)
		return wire.ErrorReply{Message: err.Error()}
	}

	if err := l.execute(ctx, req); err != nil {
		logFailure(log, "send failed", err, "user_facing", errors.IsUserFacing(err))
		return wire.ErrorReply{Message: err.Error()}
	}
	return wire.OK{}
}

func (l *LocalListener) execute(ctx context.Context, req wire.Control) error {
	switch r := req.(type) {
	case wire.Send:
		return l.dispatcher.Dispatch(ctx, r.To, r.Port, wire.Text{Text: r.Message})
	case wire.SendFile:
		return l.dispatcher.Dispatch(ctx, r.To, r.Port, wire.File{Name: r.Name, Content: r.Content})
	default:
		return errors.NewValidationError("expected a send request").
			WithValue(fmt.Sprintf("%T", req)).
			WithCause(errors.ErrUnexpectedReply)
	}
}
