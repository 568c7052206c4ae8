package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetting/internal/credentialing/models"
	id "vetting/pkg/domain"
	"vetting/pkg/requestcontext"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type sweepCall struct {
	providerID id.ProviderID
	since      time.Time
	now        time.Time
	requestID  string
}

type fakeSweeper struct {
	mu      sync.Mutex
	calls   []sweepCall
	failFor map[id.ProviderID]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func (f *fakeSweeper) Sweep(ctx context.Context, pid id.ProviderID, since time.Time) (*models.StatusView, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, sweepCall{
		providerID: pid,
		since:      since,
		now:        requestcontext.Now(ctx),
		requestID:  requestcontext.RequestID(ctx),
	})
	fail := f.failFor[pid]
	f.mu.Unlock()

	if fail {
		return nil, errors.New("lock timeout")
	}
	return &models.StatusView{ProviderID: pid}, nil
}

func (f *fakeSweeper) snapshot() []sweepCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sweepCall{}, f.calls...)
}

type staticProviders struct {
	ids []id.ProviderID
	err error
}

func (s staticProviders) ListProviderIDs(context.Context) ([]id.ProviderID, error) {
	return s.ids, s.err
}

func providers(n int) []id.ProviderID {
	out := make([]id.ProviderID, n)
	for i := range out {
		out[i] = id.NewProviderID()
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestNew(t *testing.T) {
	_, err := New(nil, staticProviders{})
	assert.ErrorContains(t, err, "sweeper is required")
	_, err = New(&fakeSweeper{}, nil)
	assert.ErrorContains(t, err, "provider lister is required")
}

func TestRunOnceTracksSince(t *testing.T) {
	ids := providers(3)
	sw := &fakeSweeper{}
	c := &clock{t: t0}
	w, err := New(sw, staticProviders{ids: ids},
		WithInterval(15*time.Minute), WithClock(c.now), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Profiles)
	assert.Zero(t, res.Failures)
	assert.Equal(t, t0.Add(-15*time.Minute), res.Since)

	calls := sw.snapshot()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Equal(t, t0.Add(-15*time.Minute), call.since)
		assert.Equal(t, t0, call.now)
		assert.Equal(t, calls[0].requestID, call.requestID)
		assert.Contains(t, call.requestID, "sweep-")
	}

	c.t = t0.Add(20 * time.Minute)
	res, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, t0, res.Since)
	assert.Equal(t, t0.Add(20*time.Minute), res.At)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	ids := providers(4)
	sw := &fakeSweeper{failFor: map[id.ProviderID]bool{ids[1]: true, ids[3]: true}}
	w, err := New(sw, staticProviders{ids: ids}, WithClock(func() time.Time { return t0 }), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Profiles)
	assert.Equal(t, 2, res.Failures)
	assert.Len(t, sw.snapshot(), 4)
}

func TestRunOnceFailedProviderKeepsItsWindow(t *testing.T) {
	ids := providers(2)
	sw := &fakeSweeper{failFor: map[id.ProviderID]bool{ids[1]: true}}
	c := &clock{t: t0}
	w, err := New(sw, staticProviders{ids: ids},
		WithInterval(15*time.Minute), WithClock(c.now), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)

	first := t0.Add(-15 * time.Minute)
	sinceOf := func(calls []sweepCall, pid id.ProviderID) []time.Time {
		var out []time.Time
		for _, call := range calls {
			if call.providerID == pid {
				out = append(out, call.since)
			}
		}
		return out
	}

	// still failing: the window keeps growing from the original start
	c.t = t0.Add(15 * time.Minute)
	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)

	sw.mu.Lock()
	sw.failFor = nil
	sw.mu.Unlock()
	c.t = t0.Add(30 * time.Minute)
	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Failures)

	calls := sw.snapshot()
	assert.Equal(t, []time.Time{first, t0, t0.Add(15 * time.Minute)}, sinceOf(calls, ids[0]))
	assert.Equal(t, []time.Time{first, first, first}, sinceOf(calls, ids[1]))

	// recovered: back on the shared window
	c.t = t0.Add(45 * time.Minute)
	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, t0.Add(30*time.Minute), sinceOf(sw.snapshot(), ids[1])[3])
}

func TestRunOnceListFailureKeepsSince(t *testing.T) {
	c := &clock{t: t0}
	lister := &staticProviders{err: errors.New("db down")}
	w, err := New(&fakeSweeper{}, lister, WithInterval(time.Minute), WithClock(c.now), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.Error(t, err)

	lister.err = nil
	c.t = t0.Add(time.Hour)
	res, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour-time.Minute), res.Since)
}

func TestRunOnceBoundsConcurrency(t *testing.T) {
	sw := &fakeSweeper{delay: 5 * time.Millisecond}
	w, err := New(sw, staticProviders{ids: providers(20)}, WithConcurrency(3), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, sw.maxInFlight.Load(), int32(3))
	assert.Len(t, sw.snapshot(), 20)
}

func TestRunStopsOnCancel(t *testing.T) {
	sw := &fakeSweeper{}
	w, err := New(sw, staticProviders{ids: providers(1)}, WithInterval(5*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(sw.snapshot()) >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
