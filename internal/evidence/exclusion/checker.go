// Package exclusion screens providers against OIG/SAM style exclusion lists.
package exclusion

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"vetting/internal/evidence/metrics"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/requestcontext"
)

var tracer = otel.Tracer("vetting/internal/evidence/exclusion")

// Checker fans a query out to every source. A match on name OR NPI from any
// source is a match, even when other sources failed.
type Checker struct {
	sources       []Source
	sourceTimeout time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option configures a Checker.
type Option func(*Checker)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// WithSourceTimeout bounds each source query. A timed-out source counts as
// unavailable.
func WithSourceTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.sourceTimeout = d
	}
}

func NewChecker(sources []Source, opts ...Option) (*Checker, error) {
	if len(sources) == 0 {
		return nil, errors.New("at least one exclusion source is required")
	}
	c := &Checker{
		sources:       sources,
		sourceTimeout: 10 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type sourceAnswer struct {
	entries []Entry
	err     error
}

// Check screens name and npi. Source failures never surface as errors: they
// turn a would-be clear into OutcomeIndeterminate.
func (c *Checker) Check(ctx context.Context, name, npi string) (*CheckResult, error) {
	normName := NormalizeName(name)
	npi = strings.TrimSpace(npi)
	if normName == "" && npi == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name or npi is required for exclusion screening")
	}

	ctx, span := tracer.Start(ctx, "exclusion.Check")
	defer span.End()

	answers := make([]sourceAnswer, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, c.sourceTimeout)
			defer cancel()
			start := time.Now()
			entries, err := src.Query(qctx, Query{Name: name, NPI: npi})
			c.metrics.ObserveSourceLatency(src.Name(), time.Since(start))
			answers[i] = sourceAnswer{entries: entries, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := &CheckResult{
		CheckedAt: requestcontext.Now(ctx),
		Name:      name,
		NPI:       npi,
	}
	for i, ans := range answers {
		src := c.sources[i].Name()
		if ans.err != nil {
			c.logger.WarnContext(ctx, "exclusion source unavailable",
				"request_id", requestcontext.RequestID(ctx),
				"source", src,
				"error", ans.err,
			)
			result.FailedSources = append(result.FailedSources, src)
			continue
		}
		for _, e := range ans.entries {
			switch {
			case npi != "" && e.NPI == npi:
				result.MatchedEntries = append(result.MatchedEntries, MatchedEntry{Source: src, EntryID: e.ID, On: "npi"})
			case normName != "" && slices.Contains(e.names(), normName):
				result.MatchedEntries = append(result.MatchedEntries, MatchedEntry{Source: src, EntryID: e.ID, On: "name"})
			}
		}
	}

	switch {
	case len(result.MatchedEntries) > 0:
		result.Outcome = OutcomeMatch
	case len(result.FailedSources) > 0:
		result.Outcome = OutcomeIndeterminate
	default:
		result.Outcome = OutcomeClear
	}
	c.metrics.IncrementOutcome("exclusion", string(result.Outcome))
	span.SetAttributes(
		attribute.String("exclusion.outcome", string(result.Outcome)),
		attribute.Int("exclusion.failed_sources", len(result.FailedSources)),
	)
	return result, nil
}
