package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidMode indicates an unknown extraction mode.
	ErrInvalidMode = errors.New("invalid extraction mode")

	// ErrInvalidConfig indicates a configuration value could not be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrToolNotFound indicates a required external binary is not installed.
	ErrToolNotFound = errors.New("external tool not found")

	// Document Errors.

	// ErrUnsupportedFormat indicates the byte signature matched no known container.
	// Fatal for that document only.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptDocument indicates parsing failed part-way through.
	// Blocks read before the failure are still returned.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrTaxonomyInvalid indicates the keyword taxonomy failed validation.
	// Fatal for the whole run.
	ErrTaxonomyInvalid = errors.New("invalid taxonomy")

	// External Service Errors.

	// ErrServiceUnavailable indicates a transient or network failure.
	// This is the only service error class that is retried.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrServiceQuotaExceeded indicates the service rejected the call for quota reasons.
	ErrServiceQuotaExceeded = errors.New("service quota exceeded")

	// ErrServiceAuth indicates the service rejected the credentials.
	ErrServiceAuth = errors.New("service authentication failed")

	// ErrServiceNotConfigured indicates the selected mode needs a service that was not set up.
	ErrServiceNotConfigured = errors.New("service not configured")
)

// IsRetryable reports whether err belongs to the transient service class.
// Quota and credential failures are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrServiceQuotaExceeded) || errors.Is(err, ErrServiceAuth) {
		return false
	}
	return errors.Is(err, ErrServiceUnavailable)
}
