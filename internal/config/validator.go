package config

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "relay.max_connections")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Home) == "" {
		errors = append(errors, ValidationError{
			Field:   "home",
			Value:   c.Home,
			Message: "must not be empty",
		})
	}

	errors = append(errors, validateListener("remote", c.Remote)...)
	errors = append(errors, validateListener("local", c.Local)...)
	if c.Remote.Port == c.Local.Port && sameHost(c.Remote.Address, c.Local.Address) {
		errors = append(errors, ValidationError{
			Field:   "local.port",
			Value:   c.Local.Port,
			Message: "collides with remote listener",
		})
	}

	errors = append(errors, c.validateRelay()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func validateListener(prefix string, l ListenerConfig) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(l.Address) == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".address",
			Value:   l.Address,
			Message: "must not be empty",
		})
	}

	if l.Port < 1 || l.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Value:   l.Port,
			Message: "must be between 1 and 65535",
		})
	}

	return errors
}

// sameHost reports whether two bind addresses could claim the same socket.
// An unspecified address overlaps with everything.
func sameHost(a, b string) bool {
	if a == b {
		return true
	}
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		return false
	}
	return pa.IsUnspecified() || pb.IsUnspecified() || pa.Unmap() == pb.Unmap()
}

// validateRelay validates the RelayConfig
func (c *Config) validateRelay() []ValidationError {
	var errors []ValidationError

	if c.Relay.MaxConnections <= 0 {
		errors = append(errors, ValidationError{
			Field:   "relay.max_connections",
			Value:   c.Relay.MaxConnections,
			Message: "must be positive",
		})
	}

	if c.Relay.DialTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "relay.dial_timeout_ms",
			Value:   c.Relay.DialTimeoutMs,
			Message: "must be positive",
		})
	}

	// 0 disables the read deadline
	if c.Relay.ReadTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "relay.read_timeout_ms",
			Value:   c.Relay.ReadTimeoutMs,
			Message: "must be non-negative",
		})
	}

	if c.Relay.MaxEnvelopeBytes <= 0 {
		errors = append(errors, ValidationError{
			Field:   "relay.max_envelope_bytes",
			Value:   c.Relay.MaxEnvelopeBytes,
			Message: "must be positive",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// 0 disables rotation
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
