// Package inbox is the interactive mailbox browser behind rv mailbox browse.
package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/raven/internal/mailbox"
	"github.com/Iron-Ham/raven/internal/tui/styles"
	"github.com/Iron-Ham/raven/internal/util"
)

// Store is the mailbox access the browser needs. *mailbox.Keeper satisfies it.
type Store interface {
	View(ctx context.Context, fn func(*mailbox.Mailbox) error) error
	Update(ctx context.Context, fn func(*mailbox.Mailbox) error) error
}

// ReloadMsg asks the browser to re-read the mailbox, e.g. after a watcher
// saw new arrivals.
type ReloadMsg struct{}

type loadedMsg struct {
	entries []mailbox.Entry
	err     error
}

// chromeLines is the number of rows around the entry list: header, border,
// blank line, status and help bar.
const chromeLines = 7

const defaultWidth = 80

// Model is the Bubbletea model for the mailbox browser
type Model struct {
	ctx   context.Context
	store Store
	fs    afero.Fs
	keys  keyMap

	entries []mailbox.Entry
	pattern string
	match   func(string) bool

	cursor int
	offset int
	width  int
	height int

	detail        string
	filtering     bool
	filterInput   textinput.Model
	pendingDelete bool
	errorMsg      string
	infoMsg       string
	quitting      bool
}

// New creates a browser over store. fs is where file attachments are
// removed when their records are deleted.
func New(ctx context.Context, store Store, fs afero.Fs) Model {
	ti := textinput.New()
	ti.Prompt = "from: "
	ti.Placeholder = "10.0.0.*"
	ti.CharLimit = 100
	ti.Width = 40

	return Model{
		ctx:         ctx,
		store:       store,
		fs:          fs,
		keys:        defaultKeyMap(),
		match:       func(string) bool { return true },
		filterInput: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		var entries []mailbox.Entry
		err := store.View(ctx, func(mb *mailbox.Mailbox) error {
			for _, s := range mb.List(true, true) {
				entries = append(entries, s.Entries...)
			}
			return nil
		})
		return loadedMsg{entries: entries, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil

	case ReloadMsg:
		return m, m.load()

	case loadedMsg:
		if msg.err != nil {
			m.errorMsg = msg.err.Error()
			return m, nil
		}
		m.entries = msg.entries
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKeypress(msg)
		}
		return m.handleKeypress(msg)
	}

	return m, nil
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear messages on any key
	m.errorMsg = ""
	m.infoMsg = ""
	if !key.Matches(msg, m.keys.Delete) {
		m.pendingDelete = false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		if m.detail != "" {
			m.detail = ""
		} else if m.pattern != "" {
			_ = m.setFilter("")
		}

	case key.Matches(msg, m.keys.Up):
		m.move(-1)

	case key.Matches(msg, m.keys.Down):
		m.move(1)

	case key.Matches(msg, m.keys.Top):
		m.move(-len(m.entries))

	case key.Matches(msg, m.keys.Bottom):
		m.move(len(m.entries))

	case key.Matches(msg, m.keys.Show):
		m.show()

	case key.Matches(msg, m.keys.Delete):
		return m.delete()

	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(m.pattern)
		return m, m.filterInput.Focus()

	case key.Matches(msg, m.keys.Reload):
		return m, m.load()
	}

	return m, nil
}

func (m Model) handleFilterKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil

	case "enter":
		if err := m.setFilter(strings.TrimSpace(m.filterInput.Value())); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.errorMsg = ""
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// setFilter narrows the list to senders matching pattern ("" shows all).
func (m *Model) setFilter(pattern string) error {
	match, err := mailbox.SenderMatcher(pattern)
	if err != nil {
		return err
	}
	m.pattern = pattern
	m.match = match
	m.cursor = 0
	m.offset = 0
	m.detail = ""
	return nil
}

// visible returns the entries that pass the sender filter.
func (m Model) visible() []mailbox.Entry {
	out := make([]mailbox.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if m.match(e.From) {
			out = append(out, e)
		}
	}
	return out
}

// Selected returns the entry under the cursor.
func (m Model) Selected() (mailbox.Entry, bool) {
	entries := m.visible()
	if m.cursor < 0 || m.cursor >= len(entries) {
		return mailbox.Entry{}, false
	}
	return entries[m.cursor], true
}

func (m *Model) move(delta int) {
	n := len(m.visible())
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.detail = ""
	m.ensureVisible()
}

func (m *Model) clampCursor() {
	if n := len(m.visible()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.ensureVisible()
}

// listHeight is how many entries fit on screen. Before the first
// WindowSizeMsg everything is shown.
func (m Model) listHeight() int {
	if m.height == 0 {
		return max(len(m.entries), 1)
	}
	h := m.height - chromeLines
	if m.detail != "" {
		h -= strings.Count(m.detail, "\n") + 4
	}
	return max(h, 1)
}

// ensureVisible scrolls so the cursor is on screen.
func (m *Model) ensureVisible() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = max(m.offset, 0)
}

func (m *Model) show() {
	e, ok := m.Selected()
	if !ok {
		return
	}

	var detail string
	err := m.store.View(m.ctx, func(mb *mailbox.Mailbox) error {
		switch e.Kind {
		case mailbox.KindFile:
			f, err := mb.ShowFile(e.Index)
			if err != nil {
				return err
			}
			detail = f.Detail()
		default:
			msg, err := mb.ShowMessage(e.Index)
			if err != nil {
				return err
			}
			detail = msg.Detail()
		}
		return nil
	})
	if err != nil {
		m.errorMsg = err.Error()
		return
	}
	m.detail = detail
	m.ensureVisible()
}

// delete removes the selected entry on the second consecutive press.
func (m Model) delete() (tea.Model, tea.Cmd) {
	e, ok := m.Selected()
	if !ok {
		return m, nil
	}
	if !m.pendingDelete {
		m.pendingDelete = true
		m.infoMsg = fmt.Sprintf("Press d again to delete %s %d", e.Kind, e.Index)
		return m, nil
	}

	m.pendingDelete = false
	var detached mailbox.File
	err := m.store.Update(m.ctx, func(mb *mailbox.Mailbox) error {
		if e.Kind == mailbox.KindFile {
			f, err := mb.DetachFile(e.Index)
			detached = f
			return err
		}
		return mb.RemoveMessage(e.Index)
	})
	if err != nil {
		m.errorMsg = err.Error()
		return m, nil
	}

	// The record is gone either way; a leftover attachment is only reported.
	if detached.Path != "" {
		if err := m.fs.Remove(detached.Path); err != nil {
			m.errorMsg = fmt.Sprintf("failed to remove attachment %s: %v", detached.Path, err)
		}
	}

	m.detail = ""
	m.infoMsg = fmt.Sprintf("Deleted %s %d", e.Kind, e.Index)
	return m, m.load()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width == 0 {
		width = defaultWidth
	}

	var b strings.Builder

	title := "raven mailbox"
	if m.pattern != "" {
		title += " (from " + m.pattern + ")"
	}
	b.WriteString(styles.Header.Render(title))
	b.WriteString("\n\n")

	entries := m.visible()
	if len(entries) == 0 {
		b.WriteString(styles.Muted.Render("  No entries."))
		b.WriteString("\n")
	}
	end := min(m.offset+m.listHeight(), len(entries))
	for i := m.offset; i < end; i++ {
		b.WriteString(renderEntry(entries[i], i == m.cursor, width))
		b.WriteString("\n")
	}

	if m.detail != "" {
		b.WriteString("\n")
		b.WriteString(styles.DetailBox.Width(max(width-4, 20)).Render(m.detail))
		b.WriteString("\n")
	}

	if m.filtering {
		b.WriteString("\n")
		b.WriteString(m.filterInput.View())
		b.WriteString("\n")
	}

	// Error/Info messages
	if m.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render("Error: " + m.errorMsg))
		b.WriteString("\n")
	}
	if m.infoMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.SuccessMsg.Render(m.infoMsg))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelp())
	return b.String()
}

func renderEntry(e mailbox.Entry, selected bool, width int) string {
	cursor := "  "
	summary := util.SingleLine(e.Summary)
	if selected {
		cursor = styles.Secondary.Render("> ")
		summary = styles.Selected.Render(summary)
	}
	line := fmt.Sprintf("%s%s %s %s", cursor, styles.KindBadge(string(e.Kind)), styles.Index.Render(fmt.Sprintf("%3d", e.Index)), summary)
	return util.TruncateANSI(line, width)
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(m.keys.help()))
	for _, b := range m.keys.help() {
		h := b.Help()
		parts = append(parts, styles.HelpKey.Render(h.Key)+" "+h.Desc)
	}
	return styles.HelpBar.Render(strings.Join(parts, "  "))
}
