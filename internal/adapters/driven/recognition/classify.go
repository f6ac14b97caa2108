package recognition

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// ClassifyStatus wraps a failed HTTP call in the matching domain error:
// 401 and 403 are credential failures, 429 is quota, 408 and 5xx are
// transient. Other statuses are returned unclassified.
func ClassifyStatus(service string, status int, message string) error {
	err := fmt.Errorf("%s: HTTP %d: %s", service, status, message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrServiceAuth, err)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrServiceQuotaExceeded, err)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}
	return err
}

// ClassifyTransport wraps a network or timeout failure as transient.
// Cancellation by the caller is returned untouched.
func ClassifyTransport(service string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrServiceUnavailable, service, err)
	}
	return fmt.Errorf("%s: %w", service, err)
}
