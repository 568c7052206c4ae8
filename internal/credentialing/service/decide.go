package service

import (
	"context"
	"strings"

	"vetting/internal/credentialing/models"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/requestcontext"
)

// DecideRequest is an admin verdict.
type DecideRequest struct {
	Decision       models.Decision
	Reason         string
	ReviewerID     string
	IdempotencyKey string
}

// Decide applies an admin decision to a profile pending review. Replays are
// no-ops: a repeated idempotency key, or a decision whose outcome already
// holds, returns the current status without appending anything. Anything
// else outside review fails with invalid_state.
func (s *Service) Decide(ctx context.Context, providerID id.ProviderID, req DecideRequest) (*models.StatusView, error) {
	decision, err := models.ParseDecision(string(req.Decision))
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if decision.RequiresReason() && reason == "" {
		return nil, models.ErrReasonRequired
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer identity is required")
	}

	var (
		view    *models.StatusView
		applied bool
	)
	err = s.tx.RunInTx(ctx, providerID, func(ctx context.Context, store Store) error {
		now := requestcontext.Now(ctx)
		p, err := load(ctx, store, providerID)
		if err != nil {
			return err
		}
		d := models.Derive(p, now, s.policy)

		if prior := p.DecisionByKey(req.IdempotencyKey); prior != nil {
			if prior.Decision != decision {
				return dErrors.New(dErrors.CodeConflict, "idempotency key was used for a different decision")
			}
			view = s.view(p, d, now)
			return nil
		}

		if d.Status != models.StatusPendingReview {
			if alreadyHolds(decision, d) {
				view = s.view(p, d, now)
				return nil
			}
			return models.ErrNotInReview
		}

		rec := p.AddDecision(models.AdminDecision{
			ID:             id.NewDecisionID(),
			ReviewerID:     req.ReviewerID,
			Decision:       decision,
			Reason:         reason,
			IdempotencyKey: req.IdempotencyKey,
			DecidedAt:      now,
		})
		d, events := s.settle(p, now)
		events = append([]models.Event{{
			Type:       models.EventDecisionRecorded,
			ProviderID: providerID,
			OccurredAt: now,
			Decision:   rec.Decision,
			ReviewerID: rec.ReviewerID,
			Reason:     rec.Reason,
		}}, events...)
		if err := s.commit(ctx, store, p, events); err != nil {
			return err
		}
		applied = true
		view = s.view(p, d, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := "noop"
	if applied {
		result = "applied"
		s.logger.InfoContext(ctx, "admin decision recorded",
			"request_id", requestcontext.RequestID(ctx),
			"provider_id", providerID,
			"reviewer_id", req.ReviewerID,
			"decision", decision,
			"status", view.Status,
		)
	}
	s.metrics.IncrementDecision(string(decision), result)
	return view, nil
}

// alreadyHolds reports whether the decision's effect is already in place.
func alreadyHolds(decision models.Decision, d models.Derivation) bool {
	switch decision {
	case models.DecisionApprove:
		return d.Status == models.StatusApproved
	case models.DecisionReject:
		return d.Status == models.StatusRejected
	case models.DecisionRequestMoreInfo:
		return d.Status == models.StatusPendingVerification && d.HasBlocker(models.BlockerMoreInfoRequested)
	}
	return false
}
