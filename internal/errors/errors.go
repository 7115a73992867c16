// Package errors provides centralized error definitions and error handling utilities
// for the raven relay. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent failures from specific stages of the relay:
//   - BindError: a listener cannot bind its address (fatal at daemon startup)
//   - AcceptError: a single accept on a listener failed
//   - ConnectError: an outbound dial or write to a peer failed
//   - DecodeError: envelope bytes are malformed
//   - PersistenceError: the mailbox document could not be read or written
//
// Semantic errors represent common error conditions:
//   - NotFoundError: a mailbox entry does not exist at the given index
//   - ValidationError: invalid input (for example a malformed destination address)
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewBindError("0.0.0.0:12345", cause)
//	err := errors.NewDecodeError("unknown tag", errors.ErrUnknownTag).WithPeer("10.0.0.2:51234")
//	err := errors.NewValidationError("invalid destination address").WithField("to").WithValue(to)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrTruncated) { ... }
//
//	var bindErr *errors.BindError
//	if errors.As(err, &bindErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Wire codec sentinel errors
var (
	// ErrTruncated indicates that envelope bytes ended before a complete frame.
	ErrTruncated = New("envelope truncated")
	// ErrBadMagic indicates that the frame does not start with the raven magic.
	ErrBadMagic = New("bad envelope magic")
	// ErrUnsupportedVersion indicates a frame version this build cannot read.
	ErrUnsupportedVersion = New("unsupported envelope version")
	// ErrUnknownTag indicates an envelope tag that is not recognized.
	ErrUnknownTag = New("unknown envelope tag")
	// ErrTrailingBytes indicates bytes left over after the last payload field.
	ErrTrailingBytes = New("trailing bytes after envelope")
	// ErrEnvelopeTooLarge indicates an envelope over the configured size limit.
	ErrEnvelopeTooLarge = New("envelope too large")
)

// Transport sentinel errors
var (
	// ErrInvalidAddress indicates a destination that is not an IP literal.
	ErrInvalidAddress = New("invalid address")
	// ErrInvalidPort indicates a port outside 1-65535.
	ErrInvalidPort = New("invalid port")
	// ErrUnexpectedReply indicates a control reply of the wrong kind.
	ErrUnexpectedReply = New("unexpected reply")
)

// Mailbox sentinel errors
var (
	// ErrNotFound indicates that a mailbox index is out of range.
	ErrNotFound = New("not found")
	// ErrMailboxCorrupted indicates that the persisted mailbox document could not be parsed.
	ErrMailboxCorrupted = New("mailbox document corrupted")
	// ErrKeeperStopped indicates a request to a mailbox keeper that is not running.
	ErrKeeperStopped = New("mailbox keeper stopped")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// RavenError is the base interface for all raven errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type RavenError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// BindError represents a listener that could not bind its address.
// It aborts daemon startup.
//
// Example:
//
//	err := errors.NewBindError("0.0.0.0:12345", cause).WithListener("remote")
//	fmt.Println(err) // "bind error [listener=remote, addr=0.0.0.0:12345]: cannot listen: ..."
type BindError struct {
	baseError
	Listener string
	Address  string
}

// NewBindError creates a new BindError.
func NewBindError(address string, cause error) *BindError {
	return &BindError{
		baseError: baseError{
			message:    "cannot listen",
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		Address: address,
	}
}

// WithListener names the listener that failed to bind.
func (e *BindError) WithListener(name string) *BindError {
	e.Listener = name
	return e
}

// Error returns the formatted error message.
func (e *BindError) Error() string {
	var parts []string
	if e.Listener != "" {
		parts = append(parts, fmt.Sprintf("listener=%s", e.Listener))
	}
	if e.Address != "" {
		parts = append(parts, fmt.Sprintf("addr=%s", e.Address))
	}
	return e.format("bind error", parts)
}

// Is checks if this error matches the target.
func (e *BindError) Is(target error) bool {
	if _, ok := target.(*BindError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AcceptError represents a failed accept on a running listener.
// The accept loop logs it and keeps going.
type AcceptError struct {
	baseError
	Listener string
}

// NewAcceptError creates a new AcceptError.
func NewAcceptError(listener string, cause error) *AcceptError {
	return &AcceptError{
		baseError: baseError{
			message:    "accept failed",
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
		Listener: listener,
	}
}

// Error returns the formatted error message.
func (e *AcceptError) Error() string {
	var parts []string
	if e.Listener != "" {
		parts = append(parts, fmt.Sprintf("listener=%s", e.Listener))
	}
	return e.format("accept error", parts)
}

// Is checks if this error matches the target.
func (e *AcceptError) Is(target error) bool {
	if _, ok := target.(*AcceptError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConnectError represents a failed outbound connection to a peer, either
// while dialing or while writing the envelope.
//
// Example:
//
//	err := errors.NewConnectError("192.168.1.20:12345", "dial", cause)
//	fmt.Println(err) // "connect error [addr=192.168.1.20:12345, op=dial]: cannot reach peer: ..."
type ConnectError struct {
	baseError
	Address string
	Op      string
}

// NewConnectError creates a new ConnectError.
func NewConnectError(address, op string, cause error) *ConnectError {
	return &ConnectError{
		baseError: baseError{
			message:    "cannot reach peer",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Address: address,
		Op:      op,
	}
}

// Error returns the formatted error message.
func (e *ConnectError) Error() string {
	var parts []string
	if e.Address != "" {
		parts = append(parts, fmt.Sprintf("addr=%s", e.Address))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	return e.format("connect error", parts)
}

// Is checks if this error matches the target.
func (e *ConnectError) Is(target error) bool {
	if _, ok := target.(*ConnectError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DecodeError represents envelope bytes that could not be decoded.
type DecodeError struct {
	baseError
	Peer string
	Size int
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(message string, cause error) *DecodeError {
	return &DecodeError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: false,
		},
		Size: -1,
	}
}

// WithPeer records the remote address the bytes came from.
func (e *DecodeError) WithPeer(peer string) *DecodeError {
	e.Peer = peer
	return e
}

// WithSize records the number of bytes that failed to decode.
func (e *DecodeError) WithSize(n int) *DecodeError {
	e.Size = n
	return e
}

// Error returns the formatted error message.
func (e *DecodeError) Error() string {
	var parts []string
	if e.Peer != "" {
		parts = append(parts, fmt.Sprintf("peer=%s", e.Peer))
	}
	if e.Size >= 0 {
		parts = append(parts, fmt.Sprintf("size=%d", e.Size))
	}
	return e.format("decode error", parts)
}

// Is checks if this error matches the target.
func (e *DecodeError) Is(target error) bool {
	if _, ok := target.(*DecodeError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PersistenceError represents a failure reading or writing the mailbox document
// or an attachment.
//
// Example:
//
//	err := errors.NewPersistenceError("save", "/home/u/.raven/mailbox.toml", cause)
type PersistenceError struct {
	baseError
	Op   string
	Path string
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, path string, cause error) *PersistenceError {
	return &PersistenceError{
		baseError: baseError{
			message:    "mailbox persistence failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Op:   op,
		Path: path,
	}
}

// WithRetryable sets whether the error is retryable.
func (e *PersistenceError) WithRetryable(r bool) *PersistenceError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *PersistenceError) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return e.format("persistence error", parts)
}

// Is checks if this error matches the target.
func (e *PersistenceError) Is(target error) bool {
	if _, ok := target.(*PersistenceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a mailbox entry that does not exist.
//
// Example:
//
//	err := errors.NewNotFoundError("message", "3")
//	fmt.Println(err) // "message '3' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("destination must be an IP address")
//	err = err.WithField("to").WithValue("example")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    err = save()
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ravenErr RavenError
	if As(err, &ravenErr) {
		return ravenErr.IsRetryable()
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var ravenErr RavenError
	if As(err, &ravenErr) {
		return ravenErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement RavenError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var ravenErr RavenError
	if As(err, &ravenErr) {
		return ravenErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike building a new error, this preserves the RavenError chain for As.
//
// Example:
//
//	err := errors.Wrap(baseErr, "receive file")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
