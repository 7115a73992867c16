package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete raven configuration. It is loaded once at
// startup and handed to each listener by value.
type Config struct {
	// Home holds the mailbox document, received attachments and the daemon log.
	Home string `mapstructure:"home"`

	Remote  ListenerConfig `mapstructure:"remote"`
	Local   ListenerConfig `mapstructure:"local"`
	Relay   RelayConfig    `mapstructure:"relay"`
	Logging LoggingConfig  `mapstructure:"logging"`
}

// ListenerConfig is a bind (or connect) endpoint.
type ListenerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// Endpoint returns address:port, bracketing IPv6 literals.
func (l ListenerConfig) Endpoint() string {
	return net.JoinHostPort(l.Address, strconv.Itoa(l.Port))
}

// RelayConfig bounds per-connection work in both listeners.
type RelayConfig struct {
	// MaxConnections caps concurrently handled connections per listener.
	MaxConnections int `mapstructure:"max_connections"`
	// DialTimeoutMs bounds outbound connects to peers and to the local daemon.
	DialTimeoutMs int `mapstructure:"dial_timeout_ms"`
	// ReadTimeoutMs bounds reading one envelope from a connection (0 = no limit)
	ReadTimeoutMs int `mapstructure:"read_timeout_ms"`
	// MaxEnvelopeBytes rejects envelopes larger than this.
	MaxEnvelopeBytes int64 `mapstructure:"max_envelope_bytes"`
}

// DialTimeout returns the dial timeout as a time.Duration
func (r RelayConfig) DialTimeout() time.Duration {
	return time.Duration(r.DialTimeoutMs) * time.Millisecond
}

// ReadTimeout returns the read timeout as a time.Duration (0 means none)
func (r RelayConfig) ReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutMs) * time.Millisecond
}

// LoggingConfig controls the daemon log at <home>/rvd.log
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// MaxSizeMB rotates the log past this size (0 disables rotation)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is how many rotated logs to keep
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated logs
	Compress bool `mapstructure:"compress"`
}

const (
	// DefaultRemotePort is where peers deliver envelopes.
	DefaultRemotePort = 12345
	// DefaultLocalPort is where the rv front-end reaches its own daemon.
	DefaultLocalPort = 12346
)

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Home: DefaultHome(),
		Remote: ListenerConfig{
			Address: "0.0.0.0",
			Port:    DefaultRemotePort,
		},
		Local: ListenerConfig{
			Address: "127.0.0.1",
			Port:    DefaultLocalPort,
		},
		Relay: RelayConfig{
			MaxConnections:   64,
			DialTimeoutMs:    5000,
			ReadTimeoutMs:    0,
			MaxEnvelopeBytes: 256 << 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("home", defaults.Home)

	viper.SetDefault("remote.address", defaults.Remote.Address)
	viper.SetDefault("remote.port", defaults.Remote.Port)
	viper.SetDefault("local.address", defaults.Local.Address)
	viper.SetDefault("local.port", defaults.Local.Port)

	viper.SetDefault("relay.max_connections", defaults.Relay.MaxConnections)
	viper.SetDefault("relay.dial_timeout_ms", defaults.Relay.DialTimeoutMs)
	viper.SetDefault("relay.read_timeout_ms", defaults.Relay.ReadTimeoutMs)
	viper.SetDefault("relay.max_envelope_bytes", defaults.Relay.MaxEnvelopeBytes)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// HomeEnv overrides the home directory.
const HomeEnv = "RAVEN_HOME"

// DefaultHome returns $RAVEN_HOME, or ~/.raven when it is unset.
func DefaultHome() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".raven"
	}
	return filepath.Join(home, ".raven")
}

// ConfigFile returns the path to the config file inside home
func ConfigFile(home string) string {
	return filepath.Join(home, "config.toml")
}
