package service

import (
	"context"
	"time"

	"vetting/internal/credentialing/models"
	docmodels "vetting/internal/documents/models"
	docservice "vetting/internal/documents/service"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
	id "vetting/pkg/domain"
)

// Store persists profiles as append-only facts. FindByProviderID returns
// sentinel.ErrNotFound for unknown providers.
type Store interface {
	FindByProviderID(ctx context.Context, providerID id.ProviderID) (*models.Profile, error)
	// Save persists changes staged on profile. Implementations write all of
	// it or none of it.
	Save(ctx context.Context, profile *models.Profile, changes models.Changes) error
	ListProviderIDs(ctx context.Context) ([]id.ProviderID, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
}

// ProviderTx gives fn exclusive access to one provider's profile. Writes made
// through the store passed to fn commit or roll back together.
type ProviderTx interface {
	RunInTx(ctx context.Context, providerID id.ProviderID, fn func(ctx context.Context, store Store) error) error
}

// NPIVerifier is satisfied by *npi.Verifier.
type NPIVerifier interface {
	Verify(ctx context.Context, candidate string, force bool) (*npi.VerificationResult, error)
}

// ExclusionChecker is satisfied by *exclusion.Checker.
type ExclusionChecker interface {
	Check(ctx context.Context, name, number string) (*exclusion.CheckResult, error)
}

// DocumentTracker is satisfied by *docservice.Tracker.
type DocumentTracker interface {
	Submit(ctx context.Context, req docservice.SubmitRequest) (*docmodels.Document, error)
	Discard(ctx context.Context, ref string)
	Fetch(ctx context.Context, doc *docmodels.Document) ([]byte, error)
	Lead() time.Duration
}

// EventPublisher receives events for facts committed in the same transaction.
type EventPublisher interface {
	Publish(ctx context.Context, events ...models.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...models.Event) error { return nil }
