// Package providers normalizes failures from external evidence sources (NPI
// registry, exclusion lists) into one retryable/terminal taxonomy.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorTimeout indicates the source took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the source returned invalid/malformed data
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the source is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorCircuitOpen indicates the call was short-circuited locally
	ErrorCircuitOpen ErrorCategory = "circuit_open"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps source failures with normalized categorization
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a new normalized provider error
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited ||
		category == ErrorCircuitOpen

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// FromTransport classifies an error returned by http.Client.Do.
func FromTransport(providerID string, err error) *ProviderError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ErrorTimeout, providerID, "request canceled", err)
	default:
		return NewProviderError(ErrorProviderOutage, providerID, "request failed", err)
	}
}

// FromStatus classifies a non-2xx HTTP status. It returns nil for 2xx.
func FromStatus(providerID string, status int) *ProviderError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, providerID, "rate limited", nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, providerID, fmt.Sprintf("status %d", status), nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, providerID, fmt.Sprintf("status %d", status), nil)
	default:
		return NewProviderError(ErrorBadData, providerID, fmt.Sprintf("unexpected status %d", status), nil)
	}
}
