package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/tui/styles"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	Long: `View and filter the daemon log at <home>/rvd.log.

Examples:
  # Show the last 50 entries
  rv logs

  # Show everything
  rv logs -n 0

  # Follow the log in real-time
  rv logs -f

  # Only warnings and errors from the remote listener
  rv logs --level warn --component remote

  # Everything involving one peer in the last hour
  rv logs --peer 192.168.1.20 --since 1h

  # Search messages and attributes
  rv logs --grep "truncated|refused"`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail      int
	logsFollow    bool
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsComponent string
	logsPeer      string
)

// followPollInterval is how often follow mode checks for new lines.
const followPollInterval = 100 * time.Millisecond

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component (remote, local, dispatch, mailbox)")
	logsCmd.Flags().StringVar(&logsPeer, "peer", "", "Filter by peer address or host")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	filter, err := buildLogFilter(time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logPath := filepath.Join(cfg.Home, logging.FileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	styled := isTerminal(out)
	if logsFollow {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		return followLogs(ctx, out, logPath, filter, styled)
	}
	return displayLogs(out, logPath, logsTail, filter, styled)
}

// buildLogFilter turns the command flags into a LogFilter.
func buildLogFilter(now time.Time) (logging.LogFilter, error) {
	f := logging.LogFilter{
		Component: logsComponent,
		Peer:      logsPeer,
	}

	if logsLevel != "" {
		if !logging.IsValidLevel(logsLevel) {
			return f, errors.NewValidationError("invalid log level").
				WithField("level").
				WithValue(logsLevel).
				WithCause(errors.ErrInvalidInput)
		}
		f.Level = logsLevel
	}

	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return f, errors.Wrap(err, "invalid duration format")
		}
		f.Since = now.Add(-d)
	}

	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return f, errors.Wrap(err, "invalid grep pattern")
		}
		f.Match = re.MatchString
	}

	return f, nil
}

// displayLogs prints the last tail matching entries of the log file.
func displayLogs(w io.Writer, logPath string, tail int, filter logging.LogFilter, styled bool) error {
	file, err := os.Open(logPath)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	defer func() { _ = file.Close() }()

	entries, err := logging.ReadLogs(file)
	if err != nil {
		return err
	}
	entries = logging.FilterLogs(entries, filter)

	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}

	for _, e := range entries {
		fmt.Fprintln(w, formatLogLine(e, styled))
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
	}
	return nil
}

// followLogs prints matching entries appended to the log until ctx is done.
func followLogs(ctx context.Context, w io.Writer, logPath string, filter logging.LogFilter, styled bool) error {
	file, err := os.Open(logPath)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return errors.Wrap(err, "failed to seek to end")
	}

	fmt.Fprintf(w, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var partial string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return errors.Wrap(err, "error reading log file")
			}
			// Keep a half-written line until the rest arrives.
			partial += line
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPollInterval):
			}
			continue
		}

		line = strings.TrimSpace(partial + line)
		partial = ""
		if line == "" {
			continue
		}

		entry, err := logging.ParseLogEntry(line)
		if err != nil {
			// If we can't parse as JSON, display raw line
			fmt.Fprintln(w, line)
			continue
		}
		if len(logging.FilterLogs([]logging.LogEntry{entry}, filter)) == 0 {
			continue
		}
		fmt.Fprintln(w, formatLogLine(entry, styled))
	}
}

// formatLogLine renders an entry, coloring it by level on a terminal.
func formatLogLine(e logging.LogEntry, styled bool) string {
	line := e.Format()
	if !styled {
		return line
	}
	return lipgloss.NewStyle().Foreground(levelColor(e.Level)).Render(line)
}

// levelColor returns the color for a log level
func levelColor(level string) lipgloss.Color {
	switch logging.ParseLevel(level) {
	case logging.LevelDebug:
		return styles.MutedColor
	case logging.LevelWarn:
		return styles.WarningColor
	case logging.LevelError:
		return styles.ErrorColor
	default:
		return styles.BlueColor
	}
}
