package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/logging"
	"github.com/Iron-Ham/raven/internal/relay"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the relay daemon",
	Long: `Run the relay daemon in the foreground.

The daemon listens on two endpoints:
  remote  accepts text and file envelopes from peers into the mailbox
  local   accepts send requests from this machine's rv front-end

Logs are written as JSON to <home>/rvd.log. Stop with Ctrl+C or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

var daemonLogStderr bool

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().BoolVar(&daemonLogStderr, "log-stderr", false, "Log to stderr instead of <home>/rvd.log")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := openDaemonLog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	d := relay.NewDaemon(*cfg, afero.NewOsFs(), log)
	if err := d.Listen(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Receiving from peers on %s\n", d.RemoteAddr())
	fmt.Fprintf(out, "Accepting local requests on %s\n", d.LocalAddr())
	fmt.Fprintf(out, "Mailbox: %s\n", cfg.Home)

	if err := d.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Daemon stopped.")
	return nil
}

func openDaemonLog(cfg *config.Config) (*logging.Logger, error) {
	dir := cfg.Home
	if daemonLogStderr {
		dir = ""
	}
	rot := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}
	return logging.NewLogger(dir, cfg.Logging.Level, rot)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
