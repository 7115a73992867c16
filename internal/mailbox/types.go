package mailbox

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/raven/internal/util"
)

// SummaryLength is how many runes of a message's text a summary keeps.
const SummaryLength = 32

// TimeLayout is how timestamps are rendered in summaries and detail views.
const TimeLayout = "2006-01-02 15:04:05"

// Message is a text message received from a peer.
type Message struct {
	From string    `toml:"from" json:"from" yaml:"from"`
	When time.Time `toml:"when" json:"when" yaml:"when"`
	Text string    `toml:"text" json:"text" yaml:"text"`
}

// Summary renders the message as one list line, cutting long text.
func (m Message) Summary() string {
	return fmt.Sprintf("[%s] From: %s :: %s", m.When.Format(TimeLayout), m.From, util.Ellipsize(m.Text, SummaryLength))
}

// Detail renders the full message for the show command.
func (m Message) Detail() string {
	return fmt.Sprintf("Message from: %s\nWhen: %s\n%s", m.From, m.When.Format(TimeLayout), m.Text)
}

// File records an attachment received from a peer. Path is where the
// content was written on disk.
type File struct {
	From string    `toml:"from" json:"from" yaml:"from"`
	When time.Time `toml:"when" json:"when" yaml:"when"`
	Path string    `toml:"path" json:"path" yaml:"path"`
}

// Summary renders the file record as one list line.
func (f File) Summary() string {
	return fmt.Sprintf("[%s] From: %s :: %s", f.When.Format(TimeLayout), f.From, f.Path)
}

// Detail renders the full file record for the show command.
func (f File) Detail() string {
	return fmt.Sprintf("File from: %s\nWhen: %s\nFile: %s", f.From, f.When.Format(TimeLayout), f.Path)
}

// Mailbox holds two independent, insertion-ordered sequences. Indices into
// either are positions at the time of use, not stable identifiers.
type Mailbox struct {
	Messages []Message `toml:"messages"`
	Files    []File    `toml:"files"`
}

// Kind distinguishes the two mailbox sequences.
type Kind string

const (
	KindMessage Kind = "message"
	KindFile    Kind = "file"
)

// Entry is one line of a listing.
type Entry struct {
	Kind    Kind      `json:"kind" yaml:"kind"`
	Index   int       `json:"index" yaml:"index"`
	From    string    `json:"from" yaml:"from"`
	When    time.Time `json:"when" yaml:"when"`
	Summary string    `json:"summary" yaml:"summary"`
}

// Section names the sequences a listing covers.
type Section struct {
	Kind    Kind
	Entries []Entry
}
