package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/raven/internal/config"
	"github.com/Iron-Ham/raven/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify raven configuration",
	Long: `View or modify raven configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Keys use dot notation, e.g.:
  rv config set remote.port 22345
  rv config set relay.read_timeout_ms 30000
  rv config set logging.level debug

Valid keys:
  remote.address            - Address peers deliver to
  remote.port               - Port peers deliver to
  local.address             - Address the front-end reaches the daemon on
  local.port                - Port the front-end reaches the daemon on
  relay.max_connections     - Concurrent connections per listener
  relay.dial_timeout_ms     - Connect timeout in milliseconds
  relay.read_timeout_ms     - Envelope read timeout in milliseconds (0 = none)
  relay.max_envelope_bytes  - Largest accepted envelope
  logging.level             - debug, info, warn or error
  logging.max_size_mb       - Rotate rvd.log past this size (0 = never)
  logging.max_backups       - Rotated logs to keep
  logging.compress          - Gzip rotated logs (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at <home>/config.toml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

// configKeys maps each settable key to its value type.
var configKeys = map[string]string{
	"remote.address":           "string",
	"remote.port":              "int",
	"local.address":            "string",
	"local.port":               "int",
	"relay.max_connections":    "int",
	"relay.dial_timeout_ms":    "int",
	"relay.read_timeout_ms":    "int",
	"relay.max_envelope_bytes": "int",
	"logging.level":            "string",
	"logging.max_size_mb":      "int",
	"logging.max_backups":      "int",
	"logging.compress":         "bool",
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configPath is the file this invocation reads, honoring --config.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return config.ConfigFile(viper.GetString("home"))
}

func configFileExists() bool {
	_, err := os.Stat(configPath())
	return err == nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if configFileExists() {
		fmt.Fprintf(out, "Config file: %s\n", configPath())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintf(out, "Home: %s\n", cfg.Home)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "remote:")
	fmt.Fprintf(out, "  address: %s\n", cfg.Remote.Address)
	fmt.Fprintf(out, "  port: %d\n", cfg.Remote.Port)

	fmt.Fprintln(out, "local:")
	fmt.Fprintf(out, "  address: %s\n", cfg.Local.Address)
	fmt.Fprintf(out, "  port: %d\n", cfg.Local.Port)

	fmt.Fprintln(out, "relay:")
	fmt.Fprintf(out, "  max_connections: %d\n", cfg.Relay.MaxConnections)
	fmt.Fprintf(out, "  dial_timeout_ms: %d\n", cfg.Relay.DialTimeoutMs)
	fmt.Fprintf(out, "  read_timeout_ms: %d\n", cfg.Relay.ReadTimeoutMs)
	fmt.Fprintf(out, "  max_envelope_bytes: %d\n", cfg.Relay.MaxEnvelopeBytes)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  max_size_mb: %d\n", cfg.Logging.MaxSizeMB)
	fmt.Fprintf(out, "  max_backups: %d\n", cfg.Logging.MaxBackups)
	fmt.Fprintf(out, "  compress: %v\n", cfg.Logging.Compress)

	return nil
}

// parseConfigValue converts value to the type registered for key.
func parseConfigValue(key, value string) (any, error) {
	keyType, ok := configKeys[key]
	if !ok {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'rv config set --help' to see valid keys", key)
	}

	switch keyType {
	case "bool":
		if value != "true" && value != "false" {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return value == "true", nil
	case "int":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return nil, fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		if strings.HasSuffix(key, ".port") && (n < 1 || n > 65535) {
			return nil, fmt.Errorf("invalid value for %s: must be between 1 and 65535", key)
		}
		return n, nil
	default:
		if key == "logging.level" && !slices.Contains(config.ValidLogLevels(), strings.ToLower(value)) {
			return nil, fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("invalid value for %s: must not be empty", key)
		}
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	typedValue, err := parseConfigValue(key, args[1])
	if err != nil {
		return err
	}

	path := configPath()
	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to read config file")
	}

	section, field, _ := strings.Cut(key, ".")
	table, ok := doc[section].(map[string]any)
	if !ok {
		table = map[string]any{}
		doc[section] = table
	}
	table[field] = typedValue

	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", path)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()

	// Check if config file already exists
	if configFileExists() {
		return fmt.Errorf("config file already exists at %s\nUse 'rv config set' to modify values", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	if err := os.WriteFile(path, []byte(defaultConfigContent()), 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", path)
	fmt.Fprintln(out, "Edit this file to customize raven's behavior.")
	return nil
}

// defaultConfigContent renders a commented config file holding the defaults.
func defaultConfigContent() string {
	d := config.Default()
	return fmt.Sprintf(`# Raven Configuration

# Where peers deliver messages and files
[remote]
address = %q
port = %d

# Where rv send and rv send-file reach this machine's daemon
[local]
address = %q
port = %d

[relay]
# Connections handled at once per listener
max_connections = %d
# Connect timeout for peers and the local daemon, in milliseconds
dial_timeout_ms = %d
# Time allowed to read one envelope, in milliseconds (0 = no limit)
read_timeout_ms = %d
# Largest envelope accepted, in bytes
max_envelope_bytes = %d

# Daemon log at <home>/rvd.log
[logging]
# debug, info, warn or error
level = %q
# Rotate past this size in megabytes (0 = never)
max_size_mb = %d
max_backups = %d
compress = %v
`,
		d.Remote.Address, d.Remote.Port,
		d.Local.Address, d.Local.Port,
		d.Relay.MaxConnections, d.Relay.DialTimeoutMs, d.Relay.ReadTimeoutMs, d.Relay.MaxEnvelopeBytes,
		d.Logging.Level, d.Logging.MaxSizeMB, d.Logging.MaxBackups, d.Logging.Compress,
	)
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	if configFileExists() {
		fmt.Fprintf(out, "Active config: %s\n", path)
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", path)
	}

	fmt.Fprintln(out, "\nThe home directory comes from --home, then $RAVEN_HOME, then ~/.raven")
	fmt.Fprintln(out, "Environment variables: RAVEN_* (e.g., RAVEN_REMOTE_PORT, RAVEN_LOGGING_LEVEL)")
	return nil
}
