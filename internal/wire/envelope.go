package wire

// Transfer is a network envelope exchanged between daemons.
// The only implementations are [Text] and [File].
type Transfer interface {
	isTransfer()
}

// Text carries a single text message.
type Text struct {
	Text string
}

// File carries a single attachment. Name is whatever the sender chose;
// receivers must sanitize it before touching the filesystem.
type File struct {
	Name    string
	Content []byte
}

func (Text) isTransfer() {}
func (File) isTransfer() {}

// Control is a local IPC envelope between the front-end and the daemon.
// Requests are [Send] and [SendFile]; replies are [OK] and [ErrorReply].
type Control interface {
	isControl()
}

// Send asks the daemon to deliver Message as a Text envelope to To:Port.
type Send struct {
	To      string
	Port    uint16
	Message string
}

// SendFile asks the daemon to deliver Content as a File envelope named Name to To:Port.
type SendFile struct {
	To      string
	Port    uint16
	Name    string
	Content []byte
}

// OK reports that the request was handed to the transport.
type OK struct{}

// ErrorReply reports why a request could not be carried out.
type ErrorReply struct {
	Message string
}

func (Send) isControl()       {}
func (SendFile) isControl()   {}
func (OK) isControl()         {}
func (ErrorReply) isControl() {}

// IsRequest reports whether c is a request the daemon should act on.
func IsRequest(c Control) bool {
	switch c.(type) {
	case Send, SendFile:
		return true
	default:
		return false
	}
}
