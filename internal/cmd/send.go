package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
	"github.com/Iron-Ham/raven/internal/relay"
)

var sendCmd = &cobra.Command{
	Use:   "send --to ADDR [-p PORT] MESSAGE...",
	Short: "Send a text message to a peer",
	Long: `Send a text message to a peer through the local daemon.

The words of MESSAGE are joined with single spaces. "Message sent" means the
local daemon handed the envelope to the peer's transport; it is not a
delivery receipt.

Examples:
  rv send --to 192.168.1.20 "lunch?"
  rv send --to fe80::1 -p 22345 build is green`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var sendFileCmd = &cobra.Command{
	Use:   "send-file --to ADDR [-p PORT] FILE",
	Short: "Send a file to a peer",
	Long: `Send a file to a peer through the local daemon.

Only the base name of FILE travels with the content. The receiver stores it
under <home>/data, renaming it if the name is already taken.`,
	Args: cobra.ExactArgs(1),
	RunE: runSendFile,
}

var (
	sendTo   string
	sendPort uint16
)

// sendFs is where send-file reads from.
var sendFs = afero.NewOsFs()

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(sendFileCmd)

	for _, c := range []*cobra.Command{sendCmd, sendFileCmd} {
		c.Flags().StringVar(&sendTo, "to", "", "Peer IP address (IPv4 or IPv6)")
		c.Flags().Uint16VarP(&sendPort, "port", "p", config.DefaultRemotePort, "Peer's remote listener port")
		_ = c.MarkFlagRequired("to")
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	if _, err := relay.ParseDestination(sendTo, sendPort); err != nil {
		return err
	}
	client, err := localClient()
	if err != nil {
		return err
	}

	if err := client.Send(cmd.Context(), sendTo, sendPort, strings.Join(args, " ")); err != nil {
		return explainSendError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Message sent")
	return nil
}

func runSendFile(cmd *cobra.Command, args []string) error {
	if _, err := relay.ParseDestination(sendTo, sendPort); err != nil {
		return err
	}

	path := args[0]
	content, err := afero.ReadFile(sendFs, path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	client, err := localClient()
	if err != nil {
		return err
	}
	if err := client.SendFile(cmd.Context(), sendTo, sendPort, filepath.Base(path), content); err != nil {
		return explainSendError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "File sent")
	return nil
}

// localClient returns a client for this machine's daemon.
func localClient() (*relay.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return relay.NewClient(cfg.Local.Endpoint(), cfg.Relay.DialTimeout()), nil
}

// explainSendError adds a hint when the local daemon itself is unreachable.
// Errors relayed back from the daemon are returned as they are.
func explainSendError(err error) error {
	var connErr *errors.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w\nIs the daemon running? Start it with 'rv daemon'", err)
	}
	return err
}
