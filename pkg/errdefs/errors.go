// Package errdefs defines the error taxonomy shared by all cloudkit clients.
//
// Remote failures are classified into a small set of sentinel errors so that
// callers can branch with errors.Is without inspecting provider-specific
// error codes. Each operation wraps its failure in an OpError carrying the
// operation name and the resolved key/id for context.
package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel errors for client operations.
var (
	// ErrConfiguration indicates missing or invalid caller-supplied
	// configuration, including invalid state transitions on a handle.
	// It is always detected locally, before any remote call.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAuthentication indicates the provider rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotFound indicates the referenced remote object or instance is absent.
	ErrNotFound = errors.New("resource not found")

	// ErrRemote indicates a generic provider-side failure, including
	// permission and availability problems.
	ErrRemote = errors.New("remote operation failed")

	// ErrQuotaExceeded indicates the provider rejected the request due to
	// an account limit.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrLocalIO indicates a local filesystem read or write failure.
	ErrLocalIO = errors.New("local i/o failed")

	// ErrDecode indicates remote content could not be decoded as UTF-8 text.
	ErrDecode = errors.New("text decoding failed")

	// ErrPartialMove indicates a move copied the object but failed to delete
	// the original, leaving it at both locations.
	ErrPartialMove = errors.New("partial move: object exists at both locations")
)

// Service identifies the backing provider API for an operation.
type Service string

const (
	ServiceS3  Service = "s3"
	ServiceEC2 Service = "ec2"
)

// String returns the string representation of the service.
func (s Service) String() string {
	return string(s)
}

// OpError wraps a failed operation with enough context to distinguish
// configuration mistakes from transient provider failures.
type OpError struct {
	// Op is the operation that failed (e.g., "Upload", "Create").
	Op string

	// Service is the backing API (s3, ec2).
	Service Service

	// Resource is the containing resource: a bucket name for object
	// operations, empty for compute operations.
	Resource string

	// Key is the resolved object key or instance id, if applicable.
	Key string

	// Err is the underlying error, typically wrapping a sentinel.
	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Key != "" && e.Resource != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Service, e.Op, e.Resource, e.Key, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Service, e.Op, e.Key, e.Err)
	}
	if e.Resource != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Service, e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OpError) Unwrap() error {
	return e.Err
}

// ConfigError reports an invalid or missing configuration field.
// It wraps ErrConfiguration.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}

// Unwrap makes ConfigError match ErrConfiguration under errors.Is.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// IsConfiguration returns true if the error is a local configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsAuthentication returns true if the error indicates rejected credentials.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsNotFound returns true if the error indicates an absent remote resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRemote returns true if the error indicates a provider-side failure.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemote)
}

// IsQuotaExceeded returns true if the error indicates an account limit.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

// IsLocalIO returns true if the error indicates a local filesystem failure.
func IsLocalIO(err error) bool {
	return errors.Is(err, ErrLocalIO)
}

// IsDecode returns true if the error indicates a text decoding failure.
func IsDecode(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsPartialMove returns true if the error indicates a duplicated object
// left behind by a failed move.
func IsPartialMove(err error) bool {
	return errors.Is(err, ErrPartialMove)
}
