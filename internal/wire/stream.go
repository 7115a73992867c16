package wire

import (
	"io"
	"net"

	"github.com/Iron-Ham/raven/internal/errors"
)

// ReadAll reads one envelope's bytes from r until end-of-stream.
// A limit of 0 or less disables the size check.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.ErrEnvelopeTooLarge
	}
	return b, nil
}

// WriteAndClose writes one frame to conn and signals end-of-message by
// half-closing the write side. Connections that cannot half-close are left
// open for the caller to close.
func WriteAndClose(conn net.Conn, frame []byte) error {
	if _, err := conn.Write(frame); err != nil {
		return err
	}
	return CloseWrite(conn)
}

// CloseWrite half-closes conn if the transport supports it.
func CloseWrite(conn net.Conn) error {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}
