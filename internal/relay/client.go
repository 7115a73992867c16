package relay

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/wire"
)

// maxReplyBytes bounds a control reply. Replies carry at most an error message.
const maxReplyBytes = 1 << 20

// ReplyError is an Error reply from the daemon.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// Client sends control requests to the local daemon.
type Client struct {
	addr   string
	dialer net.Dialer
}

// NewClient returns a Client for the daemon's local endpoint.
func NewClient(addr string, dialTimeout time.Duration) *Client {
	return &Client{
		addr:   addr,
		dialer: net.Dialer{Timeout: dialTimeout},
	}
}

// Send asks the daemon to deliver message to to:port.
func (c *Client) Send(ctx context.Context, to string, port uint16, message string) error {
	return c.Do(ctx, wire.Send{To: to, Port: port, Message: message})
}

// SendFile asks the daemon to deliver content as an attachment called name.
func (c *Client) SendFile(ctx context.Context, to string, port uint16, name string, content []byte) error {
	return c.Do(ctx, wire.SendFile{To: to, Port: port, Name: name, Content: content})
}

// Do performs one request/reply exchange. An Error reply is returned as a
// *ReplyError.
func (c *Client) Do(ctx context.Context, req wire.Control) error {
	reply, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	switch r := reply.(type) {
	case wire.OK:
		return nil
	case wire.ErrorReply:
		return &ReplyError{Message: r.Message}
	default:
		return fmt.Errorf("%w: %T", errors.ErrUnexpectedReply, reply)
	}
}

func (c *Client) roundTrip(ctx context.Context, req wire.Control) (wire.Control, error) {
	if !wire.IsRequest(req) {
		return nil, errors.NewValidationError("not a request").WithValue(fmt.Sprintf("%T", req))
	}
	frame, err := wire.EncodeControl(req)
	if err != nil {
		return nil, err
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, errors.NewConnectError(c.addr, "dial", err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := wire.WriteAndClose(conn, frame); err != nil {
		return nil, errors.NewConnectError(c.addr, "write", err)
	}

	b, err := wire.ReadAll(conn, maxReplyBytes)
	if err != nil {
		return nil, errors.NewConnectError(c.addr, "read", err)
	}
	return wire.DecodeControl(b)
}
