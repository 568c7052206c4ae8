// Package npi validates National Provider Identifiers locally and verifies
// them against the external registry.
package npi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"vetting/internal/evidence/metrics"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/sentinel"
	"vetting/pkg/requestcontext"
)

var tracer = otel.Tracer("vetting/internal/evidence/npi")

const defaultLookupTimeout = 15 * time.Second

// Verifier runs the local checks, then the cache, then the registry.
type Verifier struct {
	registry Registry
	cache    Cache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	inflight singleflight.Group
	timeout  time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// WithLookupTimeout bounds a shared registry lookup. The lookup does not
// inherit the deadline of whichever caller started it.
func WithLookupTimeout(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewVerifier requires a registry and a cache.
func NewVerifier(registry Registry, cache Cache, opts ...Option) (*Verifier, error) {
	if registry == nil {
		return nil, errors.New("npi registry is required")
	}
	if cache == nil {
		return nil, errors.New("npi cache is required")
	}
	v := &Verifier{
		registry: registry,
		cache:    cache,
		logger:   slog.Default(),
		timeout:  defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify returns the verification result for candidate.
//
// Format and checksum failures return ErrInvalidFormat/ErrInvalidChecksum
// without any network call. A cached result is returned unless force is set.
// Registry outages return ErrVerificationUnavailable and leave the cache
// untouched, so a previously cached valid result survives a forced retry
// that fails. NotFound and Deactivated are results, not errors.
func (v *Verifier) Verify(ctx context.Context, candidate string, force bool) (*VerificationResult, error) {
	ctx, span := tracer.Start(ctx, "npi.Verify")
	defer span.End()
	span.SetAttributes(attribute.Bool("npi.force", force))

	if err := Validate(candidate); err != nil {
		v.metrics.IncrementOutcome("npi", dErrors.ReasonOf(err))
		span.SetStatus(codes.Error, dErrors.ReasonOf(err))
		return nil, err
	}

	if force {
		v.metrics.IncrementCacheLookup("bypass")
	} else {
		cached, err := v.cache.Find(ctx, candidate)
		switch {
		case err == nil:
			v.metrics.IncrementCacheLookup("hit")
			span.SetAttributes(attribute.Bool("npi.cached", true))
			return cached, nil
		case errors.Is(err, sentinel.ErrNotFound):
			v.metrics.IncrementCacheLookup("miss")
		default:
			v.logger.WarnContext(ctx, "npi cache read failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}

	// Concurrent callers share one lookup; a caller that gives up leaves it
	// running for the others.
	ch := v.inflight.DoChan(candidate, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()
		return v.lookup(lctx, candidate)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = unavailable(ctx.Err())
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, ReasonVerificationUnavailable)
		return nil, res.Err
	}
	result := res.Val.(*VerificationResult)
	span.SetAttributes(attribute.Bool("npi.valid", result.Valid))
	return result, nil
}

func (v *Verifier) lookup(ctx context.Context, candidate string) (*VerificationResult, error) {
	start := time.Now()
	record, err := v.registry.Lookup(ctx, candidate)
	v.metrics.ObserveSourceLatency("nppes", time.Since(start))

	result := &VerificationResult{
		Candidate: candidate,
		FetchedAt: requestcontext.Now(ctx),
	}
	switch {
	case errors.Is(err, ErrRecordNotFound):
		result.Reason = ReasonNotFound
	case err != nil:
		v.metrics.IncrementOutcome("npi", ReasonVerificationUnavailable)
		v.logger.WarnContext(ctx, "npi registry lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, unavailable(err)
	case !record.Active():
		result.Reason = ReasonDeactivated
		result.Record = record
	default:
		result.Valid = true
		result.Record = record
	}

	outcome := "valid"
	if !result.Valid {
		outcome = result.Reason
	}
	v.metrics.IncrementOutcome("npi", outcome)

	if err := v.cache.Save(ctx, result); err != nil {
		v.logger.WarnContext(ctx, "npi cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return result, nil
}

func unavailable(err error) error {
	return &dErrors.Error{
		Code:    ErrVerificationUnavailable.Code,
		Reason:  ReasonVerificationUnavailable,
		Message: ErrVerificationUnavailable.Message,
		Err:     err,
	}
}
