package service

import (
	"context"
	"time"

	"vetting/internal/credentialing/models"
	docmodels "vetting/internal/documents/models"
	id "vetting/pkg/domain"
	"vetting/pkg/requestcontext"
)

// Reconcile records the transition from the last logged status to the
// derived one, if they differ. Every promotion is recorded by the operation
// that caused it, so what Reconcile records is what time alone changed:
// demotions on expiry.
func (s *Service) Reconcile(ctx context.Context, providerID id.ProviderID) (*models.StatusView, error) {
	view, _, err := s.reconcile(ctx, providerID, time.Time{})
	return view, err
}

// Sweep reconciles the profile and publishes document expiring/expired
// events for thresholds crossed in (since, now]. Profiles pending
// verification that still lack usable evidence get another verification
// attempt.
func (s *Service) Sweep(ctx context.Context, providerID id.ProviderID, since time.Time) (*models.StatusView, error) {
	view, derived, err := s.reconcile(ctx, providerID, since)
	if err != nil {
		return nil, err
	}
	if derived.Status == models.StatusPendingVerification && needsEvidence(derived) {
		v, err := s.Verify(ctx, providerID, false)
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper verification retry failed",
				"provider_id", providerID,
				"error", err,
			)
			return view, nil
		}
		view = v
	}
	return view, nil
}

// reconcile with a zero since publishes no expiry events.
func (s *Service) reconcile(ctx context.Context, providerID id.ProviderID, since time.Time) (*models.StatusView, models.Derivation, error) {
	var (
		view    *models.StatusView
		derived models.Derivation
	)
	err := s.tx.RunInTx(ctx, providerID, func(ctx context.Context, store Store) error {
		now := requestcontext.Now(ctx)
		p, err := load(ctx, store, providerID)
		if err != nil {
			return err
		}
		d, events := s.settle(p, now)
		if !since.IsZero() {
			events = append(events, s.expiryEvents(p, since, now)...)
		}
		if err := s.commit(ctx, store, p, events); err != nil {
			return err
		}
		derived = d
		view = s.view(p, d, now)
		return nil
	})
	return view, derived, err
}

// expiryEvents finds current documents whose expiring-soon or expiry
// instant fell in (since, now].
func (s *Service) expiryEvents(p *models.Profile, since, now time.Time) []models.Event {
	lead := s.docs.Lead()
	var events []models.Event
	for _, doc := range p.CurrentDocuments() {
		if doc.ExpiresAt == nil {
			continue
		}
		exp := *doc.ExpiresAt
		if crossed(exp, since, now) {
			events = append(events, models.DocumentEvent(models.EventDocumentExpired, doc, exp))
			s.metrics.IncrementExpiryEvent(string(docmodels.ValidityExpired))
			continue
		}
		if warn := exp.Add(-lead); crossed(warn, since, now) {
			events = append(events, models.DocumentEvent(models.EventDocumentExpiring, doc, warn))
			s.metrics.IncrementExpiryEvent(string(docmodels.ValidityExpiringSoon))
		}
	}
	return events
}

func crossed(at, since, now time.Time) bool {
	return at.After(since) && !at.After(now)
}
