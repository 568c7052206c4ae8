// Package store holds NPI verification cache backends.
package store

import (
	"context"
	"sync"

	"vetting/internal/evidence/npi"
	"vetting/pkg/platform/sentinel"
)

// InMemoryCache keeps the latest definite result per candidate. Entries never
// expire on their own; a forced re-verification replaces them.
type InMemoryCache struct {
	mu      sync.RWMutex
	results map[string]npi.VerificationResult
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{results: make(map[string]npi.VerificationResult)}
}

func (c *InMemoryCache) Find(_ context.Context, candidate string) (*npi.VerificationResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[candidate]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

// Save stores a copy of result. A nil result is a no-op.
func (c *InMemoryCache) Save(_ context.Context, result *npi.VerificationResult) error {
	if result == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[result.Candidate] = *result
	return nil
}
