package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetting/internal/evidence/npi"
	"vetting/pkg/platform/sentinel"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache()

	_, err := cache.Find(ctx, "1003000126")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	first := &npi.VerificationResult{Candidate: "1003000126", Valid: true, FetchedAt: time.Unix(100, 0)}
	require.NoError(t, cache.Save(ctx, first))

	// Mutating the caller's value must not leak into the cache.
	first.Valid = false
	got, err := cache.Find(ctx, "1003000126")
	require.NoError(t, err)
	assert.True(t, got.Valid)

	second := &npi.VerificationResult{Candidate: "1003000126", Reason: npi.ReasonDeactivated, FetchedAt: time.Unix(200, 0)}
	require.NoError(t, cache.Save(ctx, second))
	got, err = cache.Find(ctx, "1003000126")
	require.NoError(t, err)
	assert.Equal(t, npi.ReasonDeactivated, got.Reason)

	require.NoError(t, cache.Save(ctx, nil))
}
