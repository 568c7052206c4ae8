package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"vetting/internal/credentialing/models"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
	id "vetting/pkg/domain"
	"vetting/pkg/requestcontext"
)

var tracer = otel.Tracer("vetting/internal/credentialing/service")

// Verify obtains NPI and exclusion results for the profile's current
// submission and records them. The external calls run concurrently and
// outside the provider lock; recording happens under it. Without force,
// evidence already on file is reused: a recorded verdict for the number and
// a fresh definite screening are not requested again.
//
// When the registry is unreachable the exclusion result, if any, is still
// recorded before the retryable unavailable error is returned. Nothing
// already attained is reverted.
func (s *Service) Verify(ctx context.Context, providerID id.ProviderID, force bool) (*models.StatusView, error) {
	ctx, span := tracer.Start(ctx, "credentialing.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("provider.id", providerID.String()), attribute.Bool("verify.force", force))

	p, err := load(ctx, s.store, providerID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if models.Derive(p, now, s.policy).Status == models.StatusRejected {
		return nil, models.ErrProfileRejected
	}
	cur := p.CurrentNPI()
	if cur == nil {
		return nil, models.ErrNPIMissing
	}
	number, name := cur.NPI, cur.LegalName

	needNPI := force || p.LatestVerification(number) == nil
	needScreen := force
	if ex := p.LatestExclusion(name, number); ex == nil || !ex.Result.Definite() ||
		!ex.Result.FreshAt(now, s.policy.ExclusionFreshness) {
		needScreen = true
	}

	var (
		npiResult    *npi.VerificationResult
		npiErr       error
		screenResult *exclusion.CheckResult
	)
	g, gctx := errgroup.WithContext(ctx)
	if needNPI {
		g.Go(func() error {
			// unavailable is an outcome here, not a reason to cancel the screening
			npiResult, npiErr = s.verifier.Verify(gctx, number, force)
			return nil
		})
	}
	if needScreen {
		g.Go(func() error {
			res, err := s.checker.Check(gctx, name, number)
			if err != nil {
				return err
			}
			screenResult = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var view *models.StatusView
	err = s.tx.RunInTx(ctx, providerID, func(ctx context.Context, store Store) error {
		now := requestcontext.Now(ctx)
		p, err := load(ctx, store, providerID)
		if err != nil {
			return err
		}
		if npiResult != nil {
			p.AddVerification(*npiResult, now)
		}
		if screenResult != nil {
			p.AddExclusionCheck(*screenResult, now)
		}
		d, events := s.settle(p, now)
		if err := s.commit(ctx, store, p, events); err != nil {
			return err
		}
		view = s.view(p, d, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification recorded",
		"request_id", requestcontext.RequestID(ctx),
		"provider_id", providerID,
		"npi_checked", npiResult != nil,
		"screened", screenResult != nil,
		"status", view.Status,
	)

	if npiErr != nil {
		return nil, npiErr
	}
	return view, nil
}
