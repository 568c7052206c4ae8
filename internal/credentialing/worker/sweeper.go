// Package worker runs the periodic credentialing sweep.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vetting/internal/credentialing/metrics"
	"vetting/internal/credentialing/models"
	id "vetting/pkg/domain"
	"vetting/pkg/requestcontext"
)

const (
	defaultInterval    = 15 * time.Minute
	defaultConcurrency = 8
)

// Sweeper is satisfied by *service.Service.
type Sweeper interface {
	Sweep(ctx context.Context, providerID id.ProviderID, since time.Time) (*models.StatusView, error)
}

// ProviderLister is satisfied by the credentialing stores.
type ProviderLister interface {
	ListProviderIDs(ctx context.Context) ([]id.ProviderID, error)
}

// PassResult summarizes one sweep.
type PassResult struct {
	Since    time.Time
	At       time.Time
	Profiles int
	Failures int
}

// Worker sweeps every provider on an interval. Each provider is swept under
// its own lock, so passes are safe alongside live submissions. Reconciling
// only ever records demotions; a verification retry is an ordinary Verify
// and may promote a profile from pending verification to pending review.
type Worker struct {
	sweeper     Sweeper
	providers   ProviderLister
	interval    time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	lastPass time.Time
	// behind holds the window start of providers whose last sweep failed,
	// so their next sweep still covers the thresholds they missed.
	behind map[id.ProviderID]time.Time
}

type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithConcurrency bounds how many providers are swept at once.
func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) {
		w.now = now
	}
}

func New(sweeper Sweeper, providers ProviderLister, opts ...Option) (*Worker, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	if providers == nil {
		return nil, errors.New("provider lister is required")
	}
	w := &Worker{
		sweeper:     sweeper,
		providers:   providers,
		interval:    defaultInterval,
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
		behind:      make(map[id.ProviderID]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "credentialing sweep failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce sweeps every provider with a single reference time. Expiry events
// cover thresholds crossed since the previous pass; the first pass looks back
// one interval. A provider that fails to sweep is logged and counted without
// stopping the pass, and keeps its window start until a sweep succeeds.
func (w *Worker) RunOnce(ctx context.Context) (PassResult, error) {
	start := time.Now()
	now := w.now().UTC()
	since := w.lastPass
	if since.IsZero() {
		since = now.Add(-w.interval)
	}
	result := PassResult{Since: since, At: now}

	ctx = requestcontext.WithTime(ctx, now)
	ctx = requestcontext.WithRequestID(ctx, "sweep-"+uuid.NewString())

	ids, err := w.providers.ListProviderIDs(ctx)
	if err != nil {
		return result, err
	}

	var (
		mu     sync.Mutex
		failed = make(map[id.ProviderID]time.Time)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, pid := range ids {
		from := since
		if prev, ok := w.behind[pid]; ok && prev.Before(from) {
			from = prev
		}
		g.Go(func() error {
			if _, err := w.sweeper.Sweep(gctx, pid, from); err != nil {
				mu.Lock()
				failed[pid] = from
				mu.Unlock()
				w.logger.WarnContext(gctx, "failed to sweep provider",
					"request_id", requestcontext.RequestID(gctx),
					"provider_id", pid,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Profiles = len(ids)
	result.Failures = len(failed)
	w.lastPass = now
	w.behind = failed
	w.metrics.ObserveSweep(result.Profiles, result.Failures)
	w.logger.InfoContext(ctx, "credentialing sweep completed",
		"request_id", requestcontext.RequestID(ctx),
		"profiles", result.Profiles,
		"failures", result.Failures,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
