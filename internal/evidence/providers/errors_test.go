package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		category  ErrorCategory
		retryable bool
	}{
		{http.StatusTooManyRequests, ErrorRateLimited, true},
		{http.StatusUnauthorized, ErrorAuthentication, false},
		{http.StatusBadGateway, ErrorProviderOutage, true},
		{http.StatusBadRequest, ErrorBadData, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := FromStatus("nppes", tt.status)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
	assert.Nil(t, FromStatus("nppes", http.StatusOK))
}

func TestFromTransport(t *testing.T) {
	err := FromTransport("nppes", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorTimeout, GetCategory(err))
	assert.True(t, IsRetryable(err))

	err = FromTransport("nppes", errors.New("connection refused"))
	assert.Equal(t, ErrorProviderOutage, GetCategory(err))
}

func TestGetCategoryDefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("boom")))
	assert.False(t, IsRetryable(errors.New("boom")))
}
