package service

import (
	"context"
	"errors"
	"strings"

	"vetting/internal/credentialing/models"
	docservice "vetting/internal/documents/service"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
	id "vetting/pkg/domain"
	"vetting/pkg/requestcontext"
)

// SubmitDocument validates and stores an upload, then records it as the
// current document of its type, superseding the previous one. Validation
// failures never reach storage; a stored object whose record cannot be
// committed is deleted again.
func (s *Service) SubmitDocument(ctx context.Context, req docservice.SubmitRequest) (*models.SubmissionResult, error) {
	if err := s.ensureNotRejected(ctx, req.ProviderID); err != nil {
		s.metrics.IncrementSubmission("document", "rejected_profile")
		return nil, err
	}

	doc, err := s.docs.Submit(ctx, req)
	if err != nil {
		s.metrics.IncrementSubmission("document", "invalid")
		return nil, err
	}

	var (
		result  *models.SubmissionResult
		derived models.Derivation
	)
	err = s.tx.RunInTx(ctx, req.ProviderID, func(ctx context.Context, store Store) error {
		now := requestcontext.Now(ctx)
		p, err := loadOrCreate(ctx, store, req.ProviderID, now)
		if err != nil {
			return err
		}
		if models.Derive(p, now, s.policy).Status == models.StatusRejected {
			return models.ErrProfileRejected
		}

		prior := p.AddDocument(doc)
		events := []models.Event{models.DocumentEvent(models.EventDocumentSubmitted, doc, doc.UploadedAt)}
		d, changed := s.settle(p, now)
		derived = d
		events = append(events, changed...)
		if err := s.commit(ctx, store, p, events); err != nil {
			return err
		}

		result = &models.SubmissionResult{
			Document: models.NewDocumentView(doc, now, s.docs.Lead()),
			Profile:  s.view(p, d, now),
		}
		if prior != nil {
			pv := models.NewDocumentView(prior, now, s.docs.Lead())
			result.Superseded = &pv
		}
		return nil
	})
	if err != nil {
		s.docs.Discard(ctx, doc.StorageRef)
		s.metrics.IncrementSubmission("document", "failed")
		return nil, err
	}
	s.metrics.IncrementSubmission("document", "accepted")

	s.logger.InfoContext(ctx, "document submitted",
		"request_id", requestcontext.RequestID(ctx),
		"provider_id", req.ProviderID,
		"document_id", doc.ID,
		"document_type", doc.Type,
	)

	if view := s.verifyAfterSubmit(ctx, req.ProviderID, derived); view != nil {
		result.Profile = view
	}
	return result, nil
}

// SubmitNPI records the provider's NPI and legal name. Malformed numbers
// and bad check digits fail locally with no state change. Resubmitting the
// current number and name is a no-op; changing them is refused once the
// profile has been verified into review.
func (s *Service) SubmitNPI(ctx context.Context, providerID id.ProviderID, number, legalName string) (*models.StatusView, error) {
	number = strings.TrimSpace(number)
	legalName = strings.Join(strings.Fields(legalName), " ")
	if err := npi.Validate(number); err != nil {
		s.metrics.IncrementSubmission("npi", "invalid")
		return nil, err
	}
	if legalName == "" {
		s.metrics.IncrementSubmission("npi", "invalid")
		return nil, models.ErrLegalNameMissing
	}

	var (
		view    *models.StatusView
		derived models.Derivation
	)
	err := s.tx.RunInTx(ctx, providerID, func(ctx context.Context, store Store) error {
		now := requestcontext.Now(ctx)
		p, err := loadOrCreate(ctx, store, providerID, now)
		if err != nil {
			return err
		}
		d := models.Derive(p, now, s.policy)
		if d.Status == models.StatusRejected {
			return models.ErrProfileRejected
		}

		if cur := p.CurrentNPI(); cur != nil {
			if cur.NPI == number && exclusion.NormalizeName(cur.LegalName) == exclusion.NormalizeName(legalName) {
				derived = d
				view = s.view(p, d, now)
				return nil
			}
			if d.Status == models.StatusPendingReview || d.Status == models.StatusApproved {
				return models.ErrNPILocked
			}
		}

		p.AddNPISubmission(number, legalName, now)
		d, events := s.settle(p, now)
		if err := s.commit(ctx, store, p, events); err != nil {
			return err
		}
		derived = d
		view = s.view(p, d, now)
		return nil
	})
	if err != nil {
		s.metrics.IncrementSubmission("npi", "failed")
		return nil, err
	}
	s.metrics.IncrementSubmission("npi", "accepted")

	if v := s.verifyAfterSubmit(ctx, providerID, derived); v != nil {
		view = v
	}
	return view, nil
}

func (s *Service) ensureNotRejected(ctx context.Context, providerID id.ProviderID) error {
	p, err := load(ctx, s.store, providerID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil
		}
		return err
	}
	if models.Derive(p, requestcontext.Now(ctx), s.policy).Status == models.StatusRejected {
		return models.ErrProfileRejected
	}
	return nil
}

// verifyAfterSubmit requests evidence for profiles left pending
// verification. Failures are logged; the submission itself succeeded.
func (s *Service) verifyAfterSubmit(ctx context.Context, providerID id.ProviderID, d models.Derivation) *models.StatusView {
	if !s.verifyOnSubmit || d.Status != models.StatusPendingVerification || !needsEvidence(d) {
		return nil
	}
	view, err := s.Verify(ctx, providerID, false)
	if err != nil {
		s.logger.WarnContext(ctx, "verification after submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"provider_id", providerID,
			"error", err,
		)
		return nil
	}
	return view
}

// needsEvidence reports whether a pending profile is waiting on NPI or
// exclusion results rather than on the provider.
func needsEvidence(d models.Derivation) bool {
	for _, code := range []string{
		models.BlockerNPIUnverified,
		models.BlockerExclusionPending,
		models.BlockerExclusionIndeterminate,
		models.BlockerExclusionStale,
	} {
		if d.HasBlocker(code) {
			return true
		}
	}
	return false
}
