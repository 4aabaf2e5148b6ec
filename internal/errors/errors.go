// Package errors provides centralized error definitions and error handling utilities
// for the negotiator codebase. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - NegotiationError: errors raised around a negotiation session
//   - TransportError: errors from the publish/subscribe transports
//   - ProfileError: errors related to ethics profile management
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewTransportError("publish failed", cause).WithKind("redis").WithAddress(addr)
//
//	if errors.Is(err, errors.ErrTransportClosed) { ... }
//
//	var te *errors.TransportError
//	if errors.As(err, &te) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
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

// Wire-level sentinel errors
var (
	// ErrMalformedMessage indicates an inbound message could not be decoded or
	// is missing required fields.
	ErrMalformedMessage = New("malformed message")
	// ErrUnknownKind indicates a message carried an unrecognized key.
	ErrUnknownKind = New("unknown message kind")
	// ErrFrameTooLarge indicates a framed payload exceeded the frame limit.
	ErrFrameTooLarge = New("frame too large")
)

// Negotiation-related sentinel errors
var (
	// ErrSelfMessage indicates a message originated from the local session.
	ErrSelfMessage = New("message from self")
	// ErrStaleSender indicates a message from an identifier other than the bound peer.
	ErrStaleSender = New("message from unbound sender")
	// ErrDuplicateDice indicates a dice message arrived after the peer's dice was recorded.
	ErrDuplicateDice = New("duplicate dice")
	// ErrQueueFull indicates an inbound queue had no room for the message.
	ErrQueueFull = New("inbound queue full")
)

// Transport-related sentinel errors
var (
	// ErrTransportClosed indicates the transport has been closed.
	ErrTransportClosed = New("transport closed")
	// ErrNoPeers indicates a point-to-point transport has nobody to send to.
	ErrNoPeers = New("no peers configured")
	// ErrUnsupportedTransport indicates an unknown transport kind.
	ErrUnsupportedTransport = New("unsupported transport")
)

// Profile-related sentinel errors
var (
	// ErrProfileNotFound indicates an ethics profile label is not in the table.
	ErrProfileNotFound = New("profile not found")
	// ErrNoActiveProfile indicates no profile has been activated yet.
	ErrNoActiveProfile = New("no active profile")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// NegotiatorError is the base interface for all negotiator errors.
type NegotiatorError interface {
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

// formatWithContext renders "<kind> [k=v, ...]: message: cause".
func formatWithContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// NegotiationError represents errors raised around a negotiation session.
// The engine itself never returns one from Run; these surface from the agent
// layer (startup, subscription, history recording).
//
// Example:
//
//	err := errors.NewNegotiationError("record outcome", cause).WithSessionID(id).WithPeerID(peer)
type NegotiationError struct {
	baseError
	SessionID string
	PeerID    string
	Phase     string
}

// NewNegotiationError creates a new NegotiationError.
func NewNegotiationError(message string, cause error) *NegotiationError {
	return &NegotiationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds the local session identifier to the error context.
func (e *NegotiationError) WithSessionID(id string) *NegotiationError {
	e.SessionID = id
	return e
}

// WithPeerID adds the bound peer identifier to the error context.
func (e *NegotiationError) WithPeerID(id string) *NegotiationError {
	e.PeerID = id
	return e
}

// WithPhase adds the protocol phase (dice, sender, receiver) to the error context.
func (e *NegotiationError) WithPhase(phase string) *NegotiationError {
	e.Phase = phase
	return e
}

// WithSeverity sets the error severity.
func (e *NegotiationError) WithSeverity(s Severity) *NegotiationError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *NegotiationError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.PeerID != "" {
		parts = append(parts, fmt.Sprintf("peer=%s", e.PeerID))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	return formatWithContext("negotiation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *NegotiationError) Is(target error) bool {
	if _, ok := target.(*NegotiationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TransportError represents errors from a publish/subscribe transport.
// Transport errors are retryable by default: the usual causes are
// unreachable brokers or peers.
//
// Example:
//
//	err := errors.NewTransportError("dial peer", cause).WithKind("quic").WithAddress("10.0.0.2:4242")
type TransportError struct {
	baseError
	Kind    string
	Address string
}

// NewTransportError creates a new TransportError.
func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithKind adds the transport kind (memory, mailbox, redis, quic).
func (e *TransportError) WithKind(kind string) *TransportError {
	e.Kind = kind
	return e
}

// WithAddress adds the remote address or channel name.
func (e *TransportError) WithAddress(addr string) *TransportError {
	e.Address = addr
	return e
}

// WithSeverity sets the error severity.
func (e *TransportError) WithSeverity(s Severity) *TransportError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *TransportError) WithRetryable(r bool) *TransportError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TransportError) Error() string {
	var parts []string
	if e.Kind != "" {
		parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))
	}
	if e.Address != "" {
		parts = append(parts, fmt.Sprintf("addr=%s", e.Address))
	}
	return formatWithContext("transport error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *TransportError) Is(target error) bool {
	if _, ok := target.(*TransportError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ProfileError represents errors related to ethics profile management.
type ProfileError struct {
	baseError
	Label string
	Path  string
}

// NewProfileError creates a new ProfileError.
func NewProfileError(message string, cause error) *ProfileError {
	return &ProfileError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithLabel adds the profile label to the error context.
func (e *ProfileError) WithLabel(label string) *ProfileError {
	e.Label = label
	return e
}

// WithPath adds the profile file path to the error context.
func (e *ProfileError) WithPath(path string) *ProfileError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *ProfileError) Error() string {
	var parts []string
	if e.Label != "" {
		parts = append(parts, fmt.Sprintf("label=%s", e.Label))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return formatWithContext("profile error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ProfileError) Is(target error) bool {
	if _, ok := target.(*ProfileError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("profile", "care-home")
//	fmt.Println(err) // "profile 'care-home' not found"
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

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("dice out of range").WithField("content").WithValue(0)
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
	return formatWithContext("validation error", parts, e.message, e.cause)
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

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for subscription", 2*time.Second)
//	fmt.Println(err) // "timeout error: waiting for subscription (timeout: 2s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var nErr NegotiatorError
	if As(err, &nErr) {
		return nErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var nErr NegotiatorError
	if As(err, &nErr) {
		return nErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement NegotiatorError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var nErr NegotiatorError
	if As(err, &nErr) {
		return nErr.Severity()
	}
	return SeverityError
}

// IsDropReason reports whether err is one of the inbound-message drop reasons.
// Drops are expected traffic noise, not failures.
func IsDropReason(err error) bool {
	return Is(err, ErrMalformedMessage) || Is(err, ErrUnknownKind) ||
		Is(err, ErrSelfMessage) || Is(err, ErrStaleSender) ||
		Is(err, ErrDuplicateDice) || Is(err, ErrQueueFull)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
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
