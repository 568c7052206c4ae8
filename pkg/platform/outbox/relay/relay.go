// Package relay moves committed outbox entries to the broker.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vetting/pkg/platform/outbox"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Metrics tracks relay throughput. A nil *Metrics records nothing.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Lag       prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetting_outbox_published_total",
			Help: "Outbox entries delivered to the broker",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vetting_outbox_publish_failures_total",
			Help: "Failed outbox relay batches",
		}),
		Lag: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vetting_outbox_lag_seconds",
			Help:    "Time between an entry being written and being published",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 15, 60, 300},
		}),
	}
}

// Relay polls the outbox store and hands pending entries to a publisher.
type Relay struct {
	store     outbox.Store
	publisher outbox.Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		r.now = now
	}
}

func New(store outbox.Store, publisher outbox.Publisher, opts ...Option) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run relays until ctx is cancelled. Failed batches stay pending and are
// retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
					}
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it delivered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := r.publisher.Publish(ctx, entries); err != nil {
		if r.metrics != nil {
			r.metrics.Failures.Inc()
		}
		return 0, err
	}

	now := r.now()
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		if r.metrics != nil {
			r.metrics.Lag.Observe(now.Sub(e.CreatedAt).Seconds())
		}
	}
	if err := r.store.MarkPublished(ctx, ids, now); err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.Published.Add(float64(len(entries)))
	}
	r.logger.DebugContext(ctx, "outbox entries published", "count", len(entries))
	return len(entries), nil
}

// LogPublisher writes entries to the log instead of a broker. Used when no
// brokers are configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, entries []outbox.Entry) error {
	for _, e := range entries {
		p.Logger.InfoContext(ctx, "event",
			"event_id", e.ID,
			"event_type", e.EventType,
			"aggregate_type", e.AggregateType,
			"aggregate_id", e.AggregateID,
		)
	}
	return nil
}
