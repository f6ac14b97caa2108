package google

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/tally/internal/core/domain"
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return statusCode(err) == http.StatusUnauthorized
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}

// isQuota reports a 403 whose reason names a quota or usage limit.
func isQuota(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusForbidden {
		return false
	}
	for _, item := range gerr.Errors {
		r := strings.ToLower(item.Reason)
		if strings.Contains(r, "ratelimit") || strings.Contains(r, "quota") || strings.Contains(r, "limitexceeded") {
			return true
		}
	}
	return false
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// WrapError maps a Google API error onto the domain error classes:
// 401 and plain 403 are credential failures, quota 403s and 429 are quota
// failures, 404 is not found and 5xx or network errors are transient.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	code := statusCode(err)
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrServiceAuth, err)
	case isQuota(err), code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrServiceQuotaExceeded, err)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrServiceAuth, err)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}
	return err
}
