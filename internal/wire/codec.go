package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Iron-Ham/raven/internal/errors"
)

// Version is the frame version written by this build.
const Version byte = 1

// HeaderSize is the fixed number of bytes before the payload.
const HeaderSize = 9

var magic = [3]byte{'R', 'V', 'N'}

// Frame tags.
const (
	tagText byte = 0x01
	tagFile byte = 0x02

	tagSend     byte = 0x10
	tagSendFile byte = 0x11
	tagOK       byte = 0x1E
	tagError    byte = 0x1F
)

// EncodeTransfer serializes a transfer envelope into a single frame.
func EncodeTransfer(t Transfer) ([]byte, error) {
	var p payload
	var tag byte

	switch v := t.(type) {
	case Text:
		tag = tagText
		p.putString(v.Text)
	case File:
		tag = tagFile
		p.putString(v.Name)
		p.putBytes(v.Content)
	default:
		return nil, fmt.Errorf("wire: cannot encode transfer envelope %T", t)
	}

	return frame(tag, p.Bytes())
}

// EncodeControl serializes a control envelope into a single frame.
func EncodeControl(c Control) ([]byte, error) {
	var p payload
	var tag byte

	switch v := c.(type) {
	case Send:
		tag = tagSend
		p.putString(v.To)
		p.putPort(v.Port)
		p.putString(v.Message)
	case SendFile:
		tag = tagSendFile
		p.putString(v.To)
		p.putPort(v.Port)
		p.putString(v.Name)
		p.putBytes(v.Content)
	case OK:
		tag = tagOK
	case ErrorReply:
		tag = tagError
		p.putString(v.Message)
	default:
		return nil, fmt.Errorf("wire: cannot encode control envelope %T", c)
	}

	return frame(tag, p.Bytes())
}

// DecodeTransfer parses a frame produced by EncodeTransfer.
func DecodeTransfer(b []byte) (Transfer, error) {
	tag, body, err := unframe(b)
	if err != nil {
		return nil, err
	}

	r := reader{buf: body}
	var t Transfer

	switch tag {
	case tagText:
		t = Text{Text: r.string()}
	case tagFile:
		name := r.string()
		t = File{Name: name, Content: r.bytes()}
	default:
		return nil, errors.NewDecodeError(fmt.Sprintf("tag 0x%02x is not a transfer envelope", tag), errors.ErrUnknownTag).WithSize(len(b))
	}

	if err := r.finish(); err != nil {
		return nil, errors.NewDecodeError("malformed transfer payload", err).WithSize(len(b))
	}
	return t, nil
}

// DecodeControl parses a frame produced by EncodeControl.
func DecodeControl(b []byte) (Control, error) {
	tag, body, err := unframe(b)
	if err != nil {
		return nil, err
	}

	r := reader{buf: body}
	var c Control

	switch tag {
	case tagSend:
		to := r.string()
		port := r.port()
		c = Send{To: to, Port: port, Message: r.string()}
	case tagSendFile:
		to := r.string()
		port := r.port()
		name := r.string()
		c = SendFile{To: to, Port: port, Name: name, Content: r.bytes()}
	case tagOK:
		c = OK{}
	case tagError:
		c = ErrorReply{Message: r.string()}
	default:
		return nil, errors.NewDecodeError(fmt.Sprintf("tag 0x%02x is not a control envelope", tag), errors.ErrUnknownTag).WithSize(len(b))
	}

	if err := r.finish(); err != nil {
		return nil, errors.NewDecodeError("malformed control payload", err).WithSize(len(b))
	}
	return c, nil
}

func frame(tag byte, body []byte) ([]byte, error) {
	if uint64(len(body)) > math.MaxUint32 {
		return nil, errors.ErrEnvelopeTooLarge
	}

	out := make([]byte, HeaderSize, HeaderSize+len(body))
	copy(out[:3], magic[:])
	out[3] = Version
	out[4] = tag
	binary.BigEndian.PutUint32(out[5:HeaderSize], uint32(len(body)))
	return append(out, body...), nil
}

// unframe validates the header and returns the tag and payload.
func unframe(b []byte) (byte, []byte, error) {
	if len(b) < HeaderSize {
		return 0, nil, errors.NewDecodeError("short header", errors.ErrTruncated).WithSize(len(b))
	}
	if !bytes.Equal(b[:3], magic[:]) {
		return 0, nil, errors.NewDecodeError(fmt.Sprintf("magic %x", b[:3]), errors.ErrBadMagic).WithSize(len(b))
	}
	if b[3] != Version {
		return 0, nil, errors.NewDecodeError(fmt.Sprintf("version %d", b[3]), errors.ErrUnsupportedVersion).WithSize(len(b))
	}

	n := uint64(binary.BigEndian.Uint32(b[5:HeaderSize]))
	have := uint64(len(b) - HeaderSize)
	switch {
	case have < n:
		return 0, nil, errors.NewDecodeError(fmt.Sprintf("payload has %d of %d bytes", have, n), errors.ErrTruncated).WithSize(len(b))
	case have > n:
		return 0, nil, errors.NewDecodeError(fmt.Sprintf("%d bytes after payload", have-n), errors.ErrTrailingBytes).WithSize(len(b))
	}

	return b[4], b[HeaderSize:], nil
}

// payload accumulates length-prefixed fields.
type payload struct {
	bytes.Buffer
}

func (p *payload) putBytes(b []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	p.Write(n[:])
	p.Write(b)
}

func (p *payload) putString(s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	p.Write(n[:])
	p.WriteString(s)
}

func (p *payload) putPort(port uint16) {
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], port)
	p.Write(n[:])
}

// reader consumes payload fields. The first failure sticks; later reads
// return zero values so decoders can read straight through and check once.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = errors.ErrTruncated
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) length() int {
	b := r.take(4)
	if b == nil {
		return 0
	}
	n := binary.BigEndian.Uint32(b)
	if uint64(n) > uint64(len(r.buf)-r.off) {
		r.err = errors.ErrTruncated
		return 0
	}
	return int(n)
}

func (r *reader) bytes() []byte {
	n := r.length()
	b := r.take(n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) string() string {
	n := r.length()
	return string(r.take(n))
}

func (r *reader) port() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return errors.ErrTrailingBytes
	}
	return nil
}
