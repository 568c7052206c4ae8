// Package review derives the admin review queue and the expiration alert feed
// from credentialing profiles. Both are views computed on every query; nothing
// here is stored.
package review

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"vetting/internal/credentialing/models"
	docmodels "vetting/internal/documents/models"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/requestcontext"
)

// ProfileLister is satisfied by the credentialing stores.
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
}

// QueueEntry is one profile waiting for a reviewer.
type QueueEntry struct {
	ProviderID id.ProviderID `json:"provider_id"`
	Since      time.Time     `json:"since"`
	Waiting    string        `json:"waiting"`
	NPI        string        `json:"npi,omitempty"`
	LegalName  string        `json:"legal_name,omitempty"`
}

// AlertGroup lists one provider's current documents that are expiring soon
// or expired.
type AlertGroup struct {
	ProviderID         id.ProviderID         `json:"provider_id"`
	Status             models.Status         `json:"status"`
	EarliestExpiration time.Time             `json:"earliest_expiration"`
	Documents          []models.DocumentView `json:"documents"`
}

// Service answers review queries.
type Service struct {
	profiles ProfileLister
	policy   models.Policy
	lead     time.Duration
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(profiles ProfileLister, policy models.Policy, lead time.Duration, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, errors.New("profile lister is required")
	}
	if lead < 0 {
		return nil, errors.New("expiring-soon lead must not be negative")
	}
	s := &Service{
		profiles: profiles,
		policy:   policy,
		lead:     lead,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ReviewQueue lists profiles whose derived status is pending review, oldest
// entry into that state first. Equal entry times order by provider id.
func (s *Service) ReviewQueue(ctx context.Context) ([]QueueEntry, error) {
	profiles, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	queue := []QueueEntry{}
	for _, p := range profiles {
		d := models.Derive(p, now, s.policy)
		if d.Status != models.StatusPendingReview {
			continue
		}
		entry := QueueEntry{
			ProviderID: p.ProviderID,
			Since:      d.Since,
			Waiting:    now.Sub(d.Since).Round(time.Second).String(),
		}
		if sub := p.CurrentNPI(); sub != nil {
			entry.NPI = sub.NPI
			entry.LegalName = sub.LegalName
		}
		queue = append(queue, entry)
	}
	slices.SortFunc(queue, func(a, b QueueEntry) int {
		if c := a.Since.Compare(b.Since); c != 0 {
			return c
		}
		return cmp.Compare(a.ProviderID.String(), b.ProviderID.String())
	})
	return queue, nil
}

// ExpirationAlerts groups current documents evaluated expiring-soon or
// expired by provider. Groups are ordered by their earliest expiration,
// documents within a group by expiration.
func (s *Service) ExpirationAlerts(ctx context.Context) ([]AlertGroup, error) {
	profiles, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	groups := []AlertGroup{}
	for _, p := range profiles {
		var docs []models.DocumentView
		for _, doc := range p.CurrentDocuments() {
			view := models.NewDocumentView(doc, now, s.lead)
			if view.Validity != docmodels.ValidityExpiringSoon && view.Validity != docmodels.ValidityExpired {
				continue
			}
			docs = append(docs, view)
		}
		if len(docs) == 0 {
			continue
		}
		slices.SortFunc(docs, func(a, b models.DocumentView) int {
			if c := a.ExpiresAt.Compare(*b.ExpiresAt); c != 0 {
				return c
			}
			return cmp.Compare(a.Type, b.Type)
		})
		groups = append(groups, AlertGroup{
			ProviderID:         p.ProviderID,
			Status:             models.Derive(p, now, s.policy).Status,
			EarliestExpiration: *docs[0].ExpiresAt,
			Documents:          docs,
		})
	}
	slices.SortFunc(groups, func(a, b AlertGroup) int {
		if c := a.EarliestExpiration.Compare(b.EarliestExpiration); c != 0 {
			return c
		}
		return cmp.Compare(a.ProviderID.String(), b.ProviderID.String())
	})
	return groups, nil
}

func (s *Service) list(ctx context.Context) ([]*models.Profile, error) {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list profiles",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profiles")
	}
	return profiles, nil
}
