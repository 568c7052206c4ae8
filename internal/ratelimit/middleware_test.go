package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vetting/pkg/requestcontext"
	"vetting/pkg/testutil"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	serve := func(h http.Handler, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/providers/p-1", nil)
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	t.Run("rejects over the limit", func(t *testing.T) {
		h := Middleware(NewInMemoryStore(), 2, time.Minute, logger)(ok)

		first := serve(h, "192.0.2.1")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, http.StatusOK, serve(h, "192.0.2.1").Code)

		rr := serve(h, "192.0.2.1")
		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
		assert.NotEmpty(t, rr.Header().Get("Retry-After"))

		assert.Equal(t, http.StatusOK, serve(h, "192.0.2.2").Code)
	})

	t.Run("fails open when the store errors", func(t *testing.T) {
		h := Middleware(failingStore{}, 1, time.Minute, logger)(ok)
		assert.Equal(t, http.StatusOK, serve(h, "192.0.2.1").Code)
		assert.Equal(t, http.StatusOK, serve(h, "192.0.2.1").Code)
	})
}
