package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/mailbox"
	"github.com/Iron-Ham/raven/internal/tui/inbox"
	"github.com/Iron-Ham/raven/internal/tui/styles"
	"github.com/Iron-Ham/raven/internal/util"
)

var mailboxCmd = &cobra.Command{
	Use:     "mailbox",
	Aliases: []string{"mb"},
	Short:   "Read and manage received messages and files",
	Long: `Read and manage what peers have sent to this machine.

Messages and files are numbered separately, starting at 0. Numbers are
positions at the time of the command: deleting an entry renumbers the
ones after it.`,
}

var mailboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List received messages and files",
	Long: `List received messages and files. With neither -m nor -f both are shown.

Examples:
  rv mailbox list
  rv mailbox list -m --from '192.168.1.*'
  rv mailbox list -o json`,
	Args: cobra.NoArgs,
	RunE: runMailboxList,
}

var mailboxShowCmd = &cobra.Command{
	Use:   "show ID (-m | -f)",
	Short: "Show one message or file record",
	Args:  cobra.ExactArgs(1),
	RunE:  runMailboxShow,
}

var mailboxDeleteCmd = &cobra.Command{
	Use:   "delete ID (-m | -f)",
	Short: "Delete one message or file",
	Long: `Delete one message, or one file record together with the stored file.

Deleting is safe while the daemon is running; both take the mailbox lock.`,
	Args: cobra.ExactArgs(1),
	RunE: runMailboxDelete,
}

var mailboxWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new messages and files as they arrive",
	Args:  cobra.NoArgs,
	RunE:  runMailboxWatch,
}

var mailboxExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the mailbox in mbox format",
	Long: `Export every message, and a notice for every received file, as an mbox
stream that regular mail clients can open.`,
	Args: cobra.NoArgs,
	RunE: runMailboxExport,
}

var mailboxBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the mailbox interactively",
	Args:  cobra.NoArgs,
	RunE:  runMailboxBrowse,
}

var (
	listMessages bool
	listFiles    bool
	listFrom     string
	listOutput   string

	entryMessage bool
	entryFile    bool

	exportOut string
)

// mailboxFs is the filesystem the mailbox commands operate on.
var mailboxFs = afero.NewOsFs()

func init() {
	rootCmd.AddCommand(mailboxCmd)
	mailboxCmd.AddCommand(mailboxListCmd)
	mailboxCmd.AddCommand(mailboxShowCmd)
	mailboxCmd.AddCommand(mailboxDeleteCmd)
	mailboxCmd.AddCommand(mailboxWatchCmd)
	mailboxCmd.AddCommand(mailboxExportCmd)
	mailboxCmd.AddCommand(mailboxBrowseCmd)

	mailboxListCmd.Flags().BoolVarP(&listMessages, "messages", "m", false, "List messages")
	mailboxListCmd.Flags().BoolVarP(&listFiles, "files", "f", false, "List files")
	mailboxListCmd.Flags().StringVar(&listFrom, "from", "", "Only entries whose sender matches this glob (e.g. '10.0.0.*')")
	mailboxListCmd.Flags().StringVarP(&listOutput, "output", "o", "text", "Output format: text, json, yaml")

	for _, c := range []*cobra.Command{mailboxShowCmd, mailboxDeleteCmd} {
		c.Flags().BoolVarP(&entryMessage, "message", "m", false, "ID is a message")
		c.Flags().BoolVarP(&entryFile, "file", "f", false, "ID is a file")
		c.MarkFlagsOneRequired("message", "file")
		c.MarkFlagsMutuallyExclusive("message", "file")
	}

	mailboxExportCmd.Flags().StringVar(&exportOut, "out", "", "Write to this file instead of stdout")
}

// withKeeper runs fn with a started Keeper for the configured home.
func withKeeper(fn func(cfg *config.Config, k *mailbox.Keeper) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	k := mailbox.NewKeeper(mailboxFs, cfg.Home)
	k.Start()
	defer k.Stop()
	return fn(cfg, k)
}

// listing is the structured form of a mailbox listing.
type listing struct {
	Messages []mailbox.Entry `json:"messages,omitempty" yaml:"messages,omitempty"`
	Files    []mailbox.Entry `json:"files,omitempty" yaml:"files,omitempty"`
}

func runMailboxList(cmd *cobra.Command, args []string) error {
	switch listOutput {
	case "text", "json", "yaml":
	default:
		return errors.NewValidationError("unknown output format").
			WithField("output").
			WithValue(listOutput).
			WithCause(errors.ErrInvalidInput)
	}

	match, err := mailbox.SenderMatcher(listFrom)
	if err != nil {
		return err
	}

	var sections []mailbox.Section
	err = withKeeper(func(_ *config.Config, k *mailbox.Keeper) error {
		return k.View(cmd.Context(), func(m *mailbox.Mailbox) error {
			sections = mailbox.Filter(m.List(listMessages, listFiles), match)
			return nil
		})
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch listOutput {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toListing(sections))
	case "yaml":
		enc := yaml.NewEncoder(out)
		defer func() { _ = enc.Close() }()
		return enc.Encode(toListing(sections))
	default:
		writeListing(out, sections, isTerminal(out))
		return nil
	}
}

func toListing(sections []mailbox.Section) listing {
	var l listing
	for _, s := range sections {
		switch s.Kind {
		case mailbox.KindMessage:
			l.Messages = s.Entries
		case mailbox.KindFile:
			l.Files = s.Entries
		}
	}
	return l
}

// writeListing prints each section under its header, one "index: summary"
// line per entry.
func writeListing(w io.Writer, sections []mailbox.Section, styled bool) {
	for _, s := range sections {
		header := "Messages:"
		if s.Kind == mailbox.KindFile {
			header = "Files:"
		}
		if styled {
			header = styles.SectionHeader.Render(header)
		}
		fmt.Fprintln(w, header)

		for _, e := range s.Entries {
			index := strconv.Itoa(e.Index) + ":"
			if styled {
				index = styles.Index.Render(index)
			}
			fmt.Fprintf(w, "%s %s\n", index, util.SingleLine(e.Summary))
		}
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// entryKind returns the kind selected by -m/-f.
func entryKind() mailbox.Kind {
	if entryFile {
		return mailbox.KindFile
	}
	return mailbox.KindMessage
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, errors.NewValidationError("ID must be a non-negative integer").
			WithField("id").
			WithValue(arg).
			WithCause(errors.ErrInvalidInput)
	}
	return id, nil
}

// notFound prints the message used for an index that does not exist.
func notFound(w io.Writer, kind mailbox.Kind, id int) {
	name := "Message"
	if kind == mailbox.KindFile {
		name = "File"
	}
	fmt.Fprintf(w, "%s `%d` not found\n", name, id)
}

func runMailboxShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	kind := entryKind()

	var detail string
	err = withKeeper(func(_ *config.Config, k *mailbox.Keeper) error {
		return k.View(cmd.Context(), func(m *mailbox.Mailbox) error {
			if kind == mailbox.KindFile {
				f, err := m.ShowFile(id)
				if err != nil {
					return err
				}
				detail = f.Detail()
				return nil
			}
			msg, err := m.ShowMessage(id)
			if err != nil {
				return err
			}
			detail = msg.Detail()
			return nil
		})
	})

	out := cmd.OutOrStdout()
	if errors.Is(err, errors.ErrNotFound) {
		notFound(out, kind, id)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, detail)
	return nil
}

func runMailboxDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	kind := entryKind()
	log := logging.NewWriterLogger(cmd.ErrOrStderr(), logging.LevelWarn).WithComponent("mailbox")

	err = withKeeper(func(_ *config.Config, k *mailbox.Keeper) error {
		return k.Update(cmd.Context(), func(m *mailbox.Mailbox) error {
			if kind == mailbox.KindFile {
				return m.RemoveFile(k.Fs(), id, log)
			}
			return m.RemoveMessage(id)
		})
	})

	out := cmd.OutOrStdout()
	if errors.Is(err, errors.ErrNotFound) {
		notFound(out, kind, id)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %s %d\n", kind, id)
	return nil
}

func runMailboxWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s... (Ctrl+C to stop)\n", cfg.Home)
	err = mailbox.Watch(ctx, mailboxFs, cfg.Home, func(d mailbox.Delta) {
		for _, m := range d.Messages {
			fmt.Fprintf(out, "New message %s\n", m.Summary())
		}
		for _, f := range d.Files {
			fmt.Fprintf(out, "New file %s\n", f.Summary())
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runMailboxExport(cmd *cobra.Command, args []string) error {
	return withKeeper(func(_ *config.Config, k *mailbox.Keeper) error {
		var out io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := mailboxFs.Create(exportOut)
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", exportOut)
			}
			defer func() { _ = f.Close() }()
			out = f
		}

		err := k.View(cmd.Context(), func(m *mailbox.Mailbox) error {
			return mailbox.ExportMbox(out, m)
		})
		if err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported mailbox to %s\n", exportOut)
		}
		return nil
	})
}

func runMailboxBrowse(cmd *cobra.Command, args []string) error {
	return withKeeper(func(cfg *config.Config, k *mailbox.Keeper) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		p := tea.NewProgram(inbox.New(ctx, k, k.Fs()), tea.WithAltScreen(), tea.WithContext(ctx))

		// Refresh the list whenever the daemon records something new.
		go func() {
			_ = mailbox.Watch(ctx, k.Fs(), cfg.Home, func(mailbox.Delta) {
				p.Send(inbox.ReloadMsg{})
			})
		}()

		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "mailbox browser failed")
		}
		return nil
	})
}
