package cmd

import (
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "rv",
	Short: "Point-to-point message and file relay for the local network",
	Long: `Raven relays short text messages and files between machines on a LAN.

Run "rv daemon" on every machine. It accepts envelopes from peers into a
local mailbox and forwards the sends you issue with "rv send" and
"rv send-file". Read what arrived with the "rv mailbox" commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return configReadErr
	},
}

// configReadErr holds a config file that exists but could not be parsed.
var configReadErr error

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("home", "", "raven home directory (default is $RAVEN_HOME or ~/.raven)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is <home>/config.toml)")
}

func initConfig() {
	_ = viper.BindPFlag("home", rootCmd.PersistentFlags().Lookup("home"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	viper.SetEnvPrefix("RAVEN")
	// Replace dots with underscores for nested keys in env vars
	// e.g., RAVEN_RELAY_MAX_CONNECTIONS for relay.max_connections
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(config.ConfigFile(viper.GetString("home")))
		viper.SetConfigType("toml")
	}

	// A missing file is fine; a broken one is reported before any command runs.
	configReadErr = nil
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		configReadErr = errors.Wrapf(err, "failed to read config file %s", viper.ConfigFileUsed())
	}
}

// loadConfig returns the validated configuration for this invocation.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
