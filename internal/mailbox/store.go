package mailbox

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
)

const (
	// DocumentName is the mailbox document inside the home directory.
	DocumentName = "mailbox.toml"

	// DataDir is the directory inside home that holds received attachments.
	DataDir = "data"
)

// DocumentPath returns the mailbox document path for home.
func DocumentPath(home string) string {
	return filepath.Join(home, DocumentName)
}

// DataPath returns the attachment directory for home.
func DataPath(home string) string {
	return filepath.Join(home, DataDir)
}

// Open reads the mailbox document under home. A missing document yields an
// empty mailbox.
func Open(fs afero.Fs, home string) (*Mailbox, error) {
	path := DocumentPath(home)

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Mailbox{}, nil
		}
		return nil, errors.NewPersistenceError("read", path, err)
	}

	var m Mailbox
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewPersistenceError("decode", path, errors.Join(errors.ErrMailboxCorrupted, err)).WithRetryable(false)
	}
	return &m, nil
}

// Save rewrites the whole document under home. The new content is written
// to a temporary file and renamed into place so readers never see a partial
// document.
func (m *Mailbox) Save(fs afero.Fs, home string) error {
	path := DocumentPath(home)

	data, err := toml.Marshal(m)
	if err != nil {
		return errors.NewPersistenceError("encode", path, err).WithRetryable(false)
	}

	if err := fs.MkdirAll(home, 0o755); err != nil {
		return errors.NewPersistenceError("mkdir", home, err)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return errors.NewPersistenceError("write", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp) // best-effort cleanup
		return errors.NewPersistenceError("rename", path, err)
	}
	return nil
}

// AddMessage appends a text message. Timestamps are stored in UTC at
// second precision.
func (m *Mailbox) AddMessage(from string, when time.Time, text string) {
	m.Messages = append(m.Messages, Message{From: from, When: normalize(when), Text: text})
}

// AddFile appends an attachment record.
func (m *Mailbox) AddFile(from string, when time.Time, path string) {
	m.Files = append(m.Files, File{From: from, When: normalize(when), Path: path})
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// List returns the requested sections in a fixed order, messages first.
// Asking for neither is the same as asking for both.
func (m *Mailbox) List(messages, files bool) []Section {
	if !messages && !files {
		messages, files = true, true
	}

	var out []Section
	if messages {
		s := Section{Kind: KindMessage, Entries: make([]Entry, 0, len(m.Messages))}
		for i, msg := range m.Messages {
			s.Entries = append(s.Entries, Entry{Kind: KindMessage, Index: i, From: msg.From, When: msg.When, Summary: msg.Summary()})
		}
		out = append(out, s)
	}
	if files {
		s := Section{Kind: KindFile, Entries: make([]Entry, 0, len(m.Files))}
		for i, f := range m.Files {
			s.Entries = append(s.Entries, Entry{Kind: KindFile, Index: i, From: f.From, When: f.When, Summary: f.Summary()})
		}
		out = append(out, s)
	}
	return out
}

// ShowMessage returns the message at index.
func (m *Mailbox) ShowMessage(index int) (Message, error) {
	if index < 0 || index >= len(m.Messages) {
		return Message{}, errors.NewNotFoundError(string(KindMessage), strconv.Itoa(index))
	}
	return m.Messages[index], nil
}

// ShowFile returns the file record at index.
func (m *Mailbox) ShowFile(index int) (File, error) {
	if index < 0 || index >= len(m.Files) {
		return File{}, errors.NewNotFoundError(string(KindFile), strconv.Itoa(index))
	}
	return m.Files[index], nil
}

// RemoveMessage deletes the message at index, shifting later messages down.
// An out-of-range index leaves the mailbox unchanged.
func (m *Mailbox) RemoveMessage(index int) error {
	if index < 0 || index >= len(m.Messages) {
		return errors.NewNotFoundError(string(KindMessage), strconv.Itoa(index))
	}
	m.Messages = append(m.Messages[:index], m.Messages[index+1:]...)
	return nil
}

// DetachFile deletes the file record at index and returns it. The attachment
// stays on disk.
func (m *Mailbox) DetachFile(index int) (File, error) {
	if index < 0 || index >= len(m.Files) {
		return File{}, errors.NewNotFoundError(string(KindFile), strconv.Itoa(index))
	}
	f := m.Files[index]
	m.Files = append(m.Files[:index], m.Files[index+1:]...)
	return f, nil
}

// RemoveFile deletes the file record at index and then the attachment it
// points to. Failing to delete the attachment is logged, not returned: the
// record is gone either way.
func (m *Mailbox) RemoveFile(fs afero.Fs, index int, log *logging.Logger) error {
	f, err := m.DetachFile(index)
	if err != nil {
		return err
	}

	if err := fs.Remove(f.Path); err != nil {
		if log == nil {
			log = logging.NopLogger()
		}
		log.Warn("failed to remove attachment", "path", f.Path, "error", err)
	}
	return nil
}

// Len reports the number of messages and files.
func (m *Mailbox) Len() (messages, files int) {
	return len(m.Messages), len(m.Files)
}
