package mailbox

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/emersion/go-mbox"

	"github.com/Iron-Ham/raven/internal/util"
)

// exportSubjectLength bounds the Subject header derived from message text.
const exportSubjectLength = 60

// ExportMbox writes the mailbox as an mbox stream, messages first and then
// one notice per received file, so it can be opened in a regular mail
// client. Each entry's envelope sender is the peer address it came from.
func ExportMbox(w io.Writer, m *Mailbox) error {
	mw := mbox.NewWriter(w)

	for i, msg := range m.Messages {
		subject := util.Ellipsize(util.SingleLine(msg.Text), exportSubjectLength)
		if err := writeEntry(mw, msg.From, msg.When, subject, msg.Text); err != nil {
			return fmt.Errorf("export message %d: %w", i, err)
		}
	}
	for i, f := range m.Files {
		body := fmt.Sprintf("Received file stored at %s\n", f.Path)
		if err := writeEntry(mw, f.From, f.When, "File: "+f.Path, body); err != nil {
			return fmt.Errorf("export file %d: %w", i, err)
		}
	}

	return mw.Close()
}

func writeEntry(mw *mbox.Writer, from string, when time.Time, subject, body string) error {
	out, err := mw.CreateMessage(from, when)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "Date: %s\r\n", when.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}

	_, err = io.WriteString(out, b.String())
	return err
}
