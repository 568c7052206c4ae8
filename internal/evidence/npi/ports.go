package npi

import "context"

// Registry looks up a number in the external NPI registry. Implementations
// return ErrRecordNotFound when the registry answers with no record, and a
// retryable error for transport failures.
type Registry interface {
	Lookup(ctx context.Context, number string) (*RegistryRecord, error)
}

// Cache stores the latest definite result per candidate. Find returns
// sentinel.ErrNotFound on a miss.
type Cache interface {
	Find(ctx context.Context, candidate string) (*VerificationResult, error)
	Save(ctx context.Context, result *VerificationResult) error
}
