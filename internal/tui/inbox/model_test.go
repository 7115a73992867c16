package inbox

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/mailbox"
)

// memStore serves a mailbox held in memory.
type memStore struct {
	mb      *mailbox.Mailbox
	updates int
}

func (s *memStore) View(_ context.Context, fn func(*mailbox.Mailbox) error) error {
	return fn(s.mb)
}

func (s *memStore) Update(_ context.Context, fn func(*mailbox.Mailbox) error) error {
	s.updates++
	return fn(s.mb)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// newTestModel returns a loaded model over three messages and one file.
func newTestModel(t *testing.T) (Model, *memStore, afero.Fs) {
	t.Helper()
	t0 := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)
	mb := &mailbox.Mailbox{}
	mb.AddMessage("10.0.0.7:1000", t0, "first")
	mb.AddMessage("10.0.0.8:1000", t0, "second")
	mb.AddMessage("10.0.0.7:1001", t0, "third\nline")

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/home/data/a.txt", []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	mb.AddFile("10.0.0.9:1000", t0, "/home/data/a.txt")

	store := &memStore{mb: mb}
	m := New(context.Background(), store, fs)
	return step(t, m, m.Init()()), store, fs
}

// step feeds msg to m and returns the updated model.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestLoad(t *testing.T) {
	m, _, _ := newTestModel(t)

	if len(m.entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(m.entries))
	}
	if m.entries[3].Kind != mailbox.KindFile {
		t.Errorf("last entry kind = %s, want file", m.entries[3].Kind)
	}
	e, ok := m.Selected()
	if !ok || e.Index != 0 || e.Kind != mailbox.KindMessage {
		t.Errorf("Selected() = %+v, %v", e, ok)
	}
}

func TestNavigation(t *testing.T) {
	m, _, _ := newTestModel(t)

	tests := []struct {
		name string
		key  tea.KeyMsg
		want int
	}{
		{"down", runes("j"), 1},
		{"down arrow", tea.KeyMsg{Type: tea.KeyDown}, 2},
		{"down", runes("j"), 3},
		{"down past end", runes("j"), 3},
		{"up", runes("k"), 2},
		{"top", runes("g"), 0},
		{"up past start", tea.KeyMsg{Type: tea.KeyUp}, 0},
		{"bottom", runes("G"), 3},
	}

	for _, tt := range tests {
		m = step(t, m, tt.key)
		if m.cursor != tt.want {
			t.Errorf("%s: cursor = %d, want %d", tt.name, m.cursor, tt.want)
		}
	}
}

func TestShow(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.HasPrefix(m.detail, "Message from: 10.0.0.7:1000") || !strings.HasSuffix(m.detail, "first") {
		t.Errorf("detail = %q", m.detail)
	}
	if !strings.Contains(m.View(), "first") {
		t.Error("View() does not include the detail")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.detail != "" {
		t.Error("esc should close the detail")
	}

	m = step(t, m, runes("G"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.detail, "File: /home/data/a.txt") {
		t.Errorf("detail = %q", m.detail)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, store, _ := newTestModel(t)
	m = step(t, m, runes("j"))

	m = step(t, m, runes("d"))
	if store.updates != 0 {
		t.Fatal("first d should only ask for confirmation")
	}
	if !strings.Contains(m.infoMsg, "Press d again") {
		t.Errorf("infoMsg = %q", m.infoMsg)
	}

	// Any other key cancels.
	m = step(t, m, runes("k"))
	m = step(t, m, runes("j"))
	m = step(t, m, runes("d"))
	if store.updates != 0 {
		t.Fatal("confirmation should reset after another key")
	}

	next, cmd := m.Update(runes("d"))
	m = next.(Model)
	if store.updates != 1 {
		t.Fatalf("updates = %d, want 1", store.updates)
	}
	if len(store.mb.Messages) != 2 || store.mb.Messages[1].Text != "third\nline" {
		t.Errorf("messages after delete = %+v", store.mb.Messages)
	}
	if cmd == nil {
		t.Fatal("delete should reload")
	}
	m = step(t, m, cmd())
	if len(m.entries) != 3 {
		t.Errorf("entries after reload = %d, want 3", len(m.entries))
	}
}

func TestDeleteFileRemovesAttachment(t *testing.T) {
	m, store, fs := newTestModel(t)
	m = step(t, m, runes("G"))
	m = step(t, m, runes("d"))
	m = step(t, m, runes("d"))

	if len(store.mb.Files) != 0 {
		t.Errorf("files = %+v", store.mb.Files)
	}
	if ok, _ := afero.Exists(fs, "/home/data/a.txt"); ok {
		t.Error("attachment still on disk")
	}
	if !strings.Contains(m.infoMsg, "Deleted file 0") {
		t.Errorf("infoMsg = %q", m.infoMsg)
	}
}

func TestDeleteFileReportsMissingAttachment(t *testing.T) {
	m, store, fs := newTestModel(t)
	if err := fs.Remove("/home/data/a.txt"); err != nil {
		t.Fatal(err)
	}

	m = step(t, m, runes("G"))
	m = step(t, m, runes("d"))
	m = step(t, m, runes("d"))

	if len(store.mb.Files) != 0 {
		t.Errorf("files = %+v, want the record removed anyway", store.mb.Files)
	}
	if !strings.Contains(m.errorMsg, "failed to remove attachment /home/data/a.txt") {
		t.Errorf("errorMsg = %q", m.errorMsg)
	}
	if !strings.Contains(m.View(), "failed to remove attachment") {
		t.Error("status line does not show the failed removal")
	}
}

func TestFilter(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = step(t, m, runes("/"))
	if !m.filtering {
		t.Fatal("/ should open the filter input")
	}
	m = step(t, m, runes("10.0.0.7"))
	// Keys go to the input while filtering.
	m = step(t, m, runes("q"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.filtering {
		t.Fatal("enter should close the filter input")
	}
	if m.pattern != "10.0.0.7" {
		t.Fatalf("pattern = %q", m.pattern)
	}
	visible := m.visible()
	if len(visible) != 2 || visible[1].Index != 2 {
		t.Errorf("visible = %+v", visible)
	}
	if !strings.Contains(m.View(), "(from 10.0.0.7)") {
		t.Error("View() should show the active filter")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.pattern != "" || len(m.visible()) != 4 {
		t.Errorf("esc should clear the filter, pattern = %q", m.pattern)
	}
}

func TestFilterInvalidPattern(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = step(t, m, runes("/"))
	m = step(t, m, runes("10.["))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if !m.filtering {
		t.Error("input should stay open on an invalid pattern")
	}
	if m.errorMsg == "" {
		t.Error("expected an error message")
	}
}

func TestReloadMsg(t *testing.T) {
	m, store, _ := newTestModel(t)
	store.mb.AddMessage("10.0.0.1:1", time.Now(), "late arrival")

	next, cmd := m.Update(ReloadMsg{})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("ReloadMsg should return a load command")
	}
	m = step(t, m, cmd())
	if len(m.entries) != 5 {
		t.Errorf("entries = %d, want 5", len(m.entries))
	}
}

func TestScrolling(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = step(t, m, tea.WindowSizeMsg{Width: 60, Height: chromeLines + 2})

	m = step(t, m, runes("G"))
	if m.offset != 2 {
		t.Errorf("offset = %d, want 2", m.offset)
	}
	m = step(t, m, runes("g"))
	if m.offset != 0 {
		t.Errorf("offset = %d, want 0", m.offset)
	}

	for _, line := range strings.Split(m.View(), "\n") {
		if !strings.Contains(line, "From:") {
			continue
		}
		if w := len([]rune(stripANSI(line))); w > 60 {
			t.Errorf("line wider than the window (%d): %q", w, line)
		}
	}
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if next.(Model).View() != "" {
		t.Error("View() after quit should be empty")
	}
}

// stripANSI drops CSI escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
