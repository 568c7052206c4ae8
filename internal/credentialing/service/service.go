// Package service is the credentialing state machine. It records provider
// submissions, verification evidence and admin decisions as facts under a
// per-provider lock and derives status from them.
package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"vetting/internal/credentialing/metrics"
	"vetting/internal/credentialing/models"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/sentinel"
	"vetting/pkg/requestcontext"
)

// Service orchestrates the credentialing workflow.
type Service struct {
	store    Store
	tx       ProviderTx
	docs     DocumentTracker
	verifier NPIVerifier
	checker  ExclusionChecker
	events   EventPublisher
	policy   models.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	verifyOnSubmit bool
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPolicy(p models.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithVerifyOnSubmit controls whether submissions that leave a profile
// pending verification immediately request NPI and exclusion results.
func WithVerifyOnSubmit(enabled bool) Option {
	return func(s *Service) {
		s.verifyOnSubmit = enabled
	}
}

func New(store Store, tx ProviderTx, docs DocumentTracker, verifier NPIVerifier, checker ExclusionChecker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	if tx == nil {
		return nil, errors.New("provider tx is required")
	}
	if docs == nil {
		return nil, errors.New("document tracker is required")
	}
	if verifier == nil {
		return nil, errors.New("npi verifier is required")
	}
	if checker == nil {
		return nil, errors.New("exclusion checker is required")
	}
	s := &Service{
		store:          store,
		tx:             tx,
		docs:           docs,
		verifier:       verifier,
		checker:        checker,
		events:         nopPublisher{},
		policy:         models.DefaultPolicy(),
		logger:         slog.Default(),
		verifyOnSubmit: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Policy returns the derivation policy in effect.
func (s *Service) Policy() models.Policy {
	return s.policy
}

// GetStatus derives the profile's status as of the request time. Expired
// documents demote on read even before the sweeper records the transition.
func (s *Service) GetStatus(ctx context.Context, providerID id.ProviderID) (*models.StatusView, error) {
	p, err := load(ctx, s.store, providerID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	return s.view(p, models.Derive(p, now, s.policy), now), nil
}

// ListDocuments returns every document ever submitted, superseded ones
// included, oldest first.
func (s *Service) ListDocuments(ctx context.Context, providerID id.ProviderID) ([]models.DocumentView, error) {
	p, err := load(ctx, s.store, providerID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	out := make([]models.DocumentView, 0, len(p.Documents))
	for _, d := range p.Documents {
		out = append(out, models.NewDocumentView(d, now, s.docs.Lead()))
	}
	return out, nil
}

// OpenDocument returns a document's stored bytes.
func (s *Service) OpenDocument(ctx context.Context, providerID id.ProviderID, docID id.DocumentID) (*models.DocumentContent, error) {
	p, err := load(ctx, s.store, providerID)
	if err != nil {
		return nil, err
	}
	doc := p.Document(docID)
	if doc == nil {
		return nil, models.ErrDocumentNotFound
	}
	content, err := s.docs.Fetch(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &models.DocumentContent{
		Document: models.NewDocumentView(doc, requestcontext.Now(ctx), s.docs.Lead()),
		Content:  content,
	}, nil
}

func load(ctx context.Context, store Store, providerID id.ProviderID) (*models.Profile, error) {
	p, err := store.FindByProviderID(ctx, providerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrProfileNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return p, nil
}

func loadOrCreate(ctx context.Context, store Store, providerID id.ProviderID, now time.Time) (*models.Profile, error) {
	p, err := load(ctx, store, providerID)
	if errors.Is(err, models.ErrProfileNotFound) {
		return models.NewProfile(providerID, now), nil
	}
	return p, err
}

// settle derives p at now and, when the status moved since the last
// recorded transition, appends that transition. It returns the derivation
// and the event announcing the change.
func (s *Service) settle(p *models.Profile, now time.Time) (models.Derivation, []models.Event) {
	d := models.Derive(p, now, s.policy)
	recorded := p.RecordedStatus()
	if d.Status == recorded {
		return d, nil
	}
	t := p.AddTransition(recorded, d.Status, d.Since, now)
	s.metrics.IncrementTransition(string(t.From), string(t.To))
	return d, []models.Event{models.StatusChanged(p.ProviderID, t)}
}

// commit saves the staged facts and publishes events inside the provider
// transaction.
func (s *Service) commit(ctx context.Context, store Store, p *models.Profile, events []models.Event) error {
	if changes := p.TakeChanges(); !changes.Empty() {
		if err := store.Save(ctx, p, changes); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save profile")
		}
	}
	if len(events) == 0 {
		return nil
	}
	requestID := requestcontext.RequestID(ctx)
	for i := range events {
		events[i].RequestID = requestID
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish credentialing events")
	}
	for _, ev := range events {
		if ev.Type == models.EventStatusChanged {
			s.logger.InfoContext(ctx, "credentialing status changed",
				"request_id", requestID,
				"provider_id", p.ProviderID,
				"from", ev.From,
				"to", ev.To,
			)
		}
	}
	return nil
}

func (s *Service) view(p *models.Profile, d models.Derivation, now time.Time) *models.StatusView {
	v := &models.StatusView{
		ProviderID: p.ProviderID,
		Status:     d.Status,
		Since:      d.Since,
		Bookable:   d.Status.Bookable(),
		Blockers:   d.Blockers,
		Documents:  []models.DocumentView{},
		Decisions:  []models.DecisionView{},
		AsOf:       now,
	}
	if v.Blockers == nil {
		v.Blockers = []models.Blocker{}
	}

	if cur := p.CurrentNPI(); cur != nil {
		nv := &models.NPIView{Number: cur.NPI, LegalName: cur.LegalName, SubmittedAt: cur.SubmittedAt}
		if ver := p.LatestVerification(cur.NPI); ver != nil {
			res := ver.Result
			nv.Verification = &res
			nv.Verified = res.Valid
		}
		v.NPI = nv

		if ex := p.LatestExclusion(cur.LegalName, cur.NPI); ex != nil {
			v.Exclusion = &models.ExclusionView{
				Outcome:        ex.Result.Outcome,
				CheckedAt:      ex.Result.CheckedAt,
				Fresh:          ex.Result.FreshAt(now, s.policy.ExclusionFreshness),
				MatchedEntries: ex.Result.EntryIDs(),
				FailedSources:  ex.Result.FailedSources,
			}
		}
	}

	current := p.CurrentDocuments()
	for _, doc := range current {
		v.Documents = append(v.Documents, models.NewDocumentView(doc, now, s.docs.Lead()))
	}
	slices.SortFunc(v.Documents, func(a, b models.DocumentView) int {
		return cmp.Compare(a.Type, b.Type)
	})

	for _, dec := range p.Decisions {
		v.Decisions = append(v.Decisions, models.DecisionView{
			ID:         dec.ID,
			ReviewerID: dec.ReviewerID,
			Decision:   dec.Decision,
			Reason:     dec.Reason,
			DecidedAt:  dec.DecidedAt,
		})
	}
	return v
}
