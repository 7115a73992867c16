package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Remote.Endpoint() != "0.0.0.0:12345" {
		t.Errorf("Remote.Endpoint() = %q, want %q", cfg.Remote.Endpoint(), "0.0.0.0:12345")
	}
	if cfg.Local.Endpoint() != "127.0.0.1:12346" {
		t.Errorf("Local.Endpoint() = %q, want %q", cfg.Local.Endpoint(), "127.0.0.1:12346")
	}
	if cfg.Relay.MaxConnections != 64 {
		t.Errorf("Relay.MaxConnections = %d, want 64", cfg.Relay.MaxConnections)
	}
	if cfg.Relay.DialTimeout() != 5*time.Second {
		t.Errorf("Relay.DialTimeout() = %v, want 5s", cfg.Relay.DialTimeout())
	}
	if cfg.Relay.ReadTimeout() != 0 {
		t.Errorf("Relay.ReadTimeout() = %v, want 0", cfg.Relay.ReadTimeout())
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() does not validate: %v", ValidationErrors(errs))
	}
}

func TestListenerConfig_Endpoint(t *testing.T) {
	tests := []struct {
		cfg  ListenerConfig
		want string
	}{
		{ListenerConfig{Address: "0.0.0.0", Port: 12345}, "0.0.0.0:12345"},
		{ListenerConfig{Address: "::1", Port: 12346}, "[::1]:12346"},
		{ListenerConfig{Address: "localhost", Port: 80}, "localhost:80"},
	}

	for _, tt := range tests {
		if got := tt.cfg.Endpoint(); got != tt.want {
			t.Errorf("Endpoint() = %q, want %q", got, tt.want)
		}
	}
}

func TestDefaultHome(t *testing.T) {
	t.Run("with RAVEN_HOME", func(t *testing.T) {
		t.Setenv(HomeEnv, "/srv/raven")
		if got := DefaultHome(); got != "/srv/raven" {
			t.Errorf("DefaultHome() = %q, want /srv/raven", got)
		}
	})

	t.Run("without RAVEN_HOME", func(t *testing.T) {
		t.Setenv(HomeEnv, "")
		home, _ := os.UserHomeDir()
		want := filepath.Join(home, ".raven")
		if got := DefaultHome(); got != want {
			t.Errorf("DefaultHome() = %q, want %q", got, want)
		}
	})
}

func TestConfigFile(t *testing.T) {
	if got := ConfigFile("/srv/raven"); got != "/srv/raven/config.toml" {
		t.Errorf("ConfigFile() = %q", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("home", t.TempDir())

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Remote.Port != DefaultRemotePort || cfg.Local.Port != DefaultLocalPort {
			t.Errorf("ports = %d/%d", cfg.Remote.Port, cfg.Local.Port)
		}
		if cfg.Relay.MaxEnvelopeBytes != 256<<20 {
			t.Errorf("MaxEnvelopeBytes = %d", cfg.Relay.MaxEnvelopeBytes)
		}
	})

	t.Run("reads toml file", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()

		home := t.TempDir()
		content := `
[remote]
port = 22345

[local]
address = "::1"

[relay]
max_connections = 8
read_timeout_ms = 2500

[logging]
level = "DEBUG"
`
		path := ConfigFile(home)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig() error = %v", err)
		}
		viper.Set("home", home)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Remote.Endpoint() != "0.0.0.0:22345" {
			t.Errorf("Remote.Endpoint() = %q", cfg.Remote.Endpoint())
		}
		if cfg.Local.Endpoint() != "[::1]:12346" {
			t.Errorf("Local.Endpoint() = %q", cfg.Local.Endpoint())
		}
		if cfg.Relay.MaxConnections != 8 {
			t.Errorf("MaxConnections = %d", cfg.Relay.MaxConnections)
		}
		if cfg.Relay.ReadTimeout() != 2500*time.Millisecond {
			t.Errorf("ReadTimeout() = %v", cfg.Relay.ReadTimeout())
		}
		if cfg.Relay.DialTimeoutMs != 5000 {
			t.Errorf("DialTimeoutMs = %d, want default 5000", cfg.Relay.DialTimeoutMs)
		}
		if cfg.Logging.Level != "DEBUG" {
			t.Errorf("Logging.Level = %q", cfg.Logging.Level)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("home", t.TempDir())
		viper.Set("remote.port", 0)
		viper.Set("relay.max_connections", -1)

		_, err := Load()
		if err == nil {
			t.Fatal("Load() should fail")
		}
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("error type = %T, want ValidationErrors", err)
		}
		if len(verrs) != 2 {
			t.Errorf("got %d errors, want 2: %v", len(verrs), err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty home", func(c *Config) { c.Home = " " }, "home"},
		{"empty remote address", func(c *Config) { c.Remote.Address = "" }, "remote.address"},
		{"remote port too high", func(c *Config) { c.Remote.Port = 70000 }, "remote.port"},
		{"local port zero", func(c *Config) { c.Local.Port = 0 }, "local.port"},
		{"same endpoint", func(c *Config) { c.Local = c.Remote }, "local.port"},
		{"unspecified overlaps loopback", func(c *Config) { c.Local.Port = c.Remote.Port }, "local.port"},
		{"zero connections", func(c *Config) { c.Relay.MaxConnections = 0 }, "relay.max_connections"},
		{"zero dial timeout", func(c *Config) { c.Relay.DialTimeoutMs = 0 }, "relay.dial_timeout_ms"},
		{"negative read timeout", func(c *Config) { c.Relay.ReadTimeoutMs = -1 }, "relay.read_timeout_ms"},
		{"zero envelope limit", func(c *Config) { c.Relay.MaxEnvelopeBytes = 0 }, "relay.max_envelope_bytes"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"huge log size", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -2 }, "logging.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Home = "/tmp/raven"
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), ValidationErrors(errs))
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestValidate_AcceptsDistinctHosts(t *testing.T) {
	cfg := Default()
	cfg.Remote.Address = "192.168.1.10"
	cfg.Local.Address = "127.0.0.1"
	cfg.Local.Port = cfg.Remote.Port
	cfg.Logging.Level = "WARN"
	cfg.Logging.MaxSizeMB = 0

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v", ValidationErrors(errs))
	}
}

func TestValidationErrors_Error(t *testing.T) {
	single := ValidationErrors{{Field: "remote.port", Value: 0, Message: "must be between 1 and 65535"}}
	if got := single.Error(); got != "remote.port: must be between 1 and 65535 (got: 0)" {
		t.Errorf("Error() = %q", got)
	}

	multi := append(single, ValidationError{Field: "home", Value: "", Message: "must not be empty"})
	got := multi.Error()
	if !strings.HasPrefix(got, "2 validation errors:\n") {
		t.Errorf("Error() = %q", got)
	}
	if !strings.Contains(got, "  2. home: must not be empty") {
		t.Errorf("Error() = %q", got)
	}

	if (ValidationErrors{}).Error() != "" {
		t.Error("empty ValidationErrors should render as empty string")
	}
}
