package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "vetting/internal/jwt_token"
	"vetting/internal/ratelimit"
	"vetting/pkg/platform/httputil"
	"vetting/pkg/requestcontext"
	"vetting/pkg/testutil"
)

type echoModule struct{}

func (echoModule) Register(r chi.Router) {
	r.Get("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"request_id": requestcontext.RequestID(r.Context())})
	})
}

func (echoModule) RegisterAdmin(r chi.Router) {
	r.Get("/v1/admin/whoami", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"reviewer_id": requestcontext.ReviewerID(r.Context())})
	})
}

func newRouter(t *testing.T, checks ...HealthCheck) (http.Handler, *jwttoken.JWTService) {
	t.Helper()
	jwt := jwttoken.NewJWTService("test-signing-key-test-signing-key", "vetting-admin")
	h := New(Options{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Reviewers:   jwt,
		CORSOrigins: []string{"https://admin.example.com"},
		Health:      checks,
	}, echoModule{})
	return h, jwt
}

func TestPublicRoutes(t *testing.T) {
	h, _ := newRouter(t)

	req := testutil.NewRequest(t, http.MethodGet, "/v1/ping")
	req.Header.Set("X-Request-ID", "req-123")
	rr := testutil.DoRequest(h, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-123", (*testutil.UnmarshalResponse[map[string]string](t, rr))["request_id"])
}

func TestAdminRoutesRequireReviewer(t *testing.T) {
	h, jwt := newRouter(t)

	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/v1/admin/whoami"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	token, err := jwt.GenerateReviewerToken("rev-7", time.Hour)
	require.NoError(t, err)
	req := testutil.NewRequest(t, http.MethodGet, "/v1/admin/whoami")
	req.Header.Set("Authorization", "Bearer "+token)
	rr = testutil.DoRequest(h, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `"reviewer_id":"rev-7"`)
}

func TestRateLimitCoversPublicRoutesOnly(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := jwttoken.NewJWTService("test-signing-key-test-signing-key", "vetting-admin")
	h := New(Options{
		Logger:    logger,
		Reviewers: jwt,
		RateLimit: ratelimit.Middleware(ratelimit.NewInMemoryStore(), 1, time.Minute, logger),
	}, echoModule{})

	testutil.AssertStatus(t, testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/v1/ping")), http.StatusOK)
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/v1/ping"))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")

	token, err := jwt.GenerateReviewerToken("rev-7", time.Hour)
	require.NoError(t, err)
	for range 2 {
		req := testutil.NewRequest(t, http.MethodGet, "/v1/admin/whoami")
		req.Header.Set("Authorization", "Bearer "+token)
		testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusOK)
	}
}

func TestHealthz(t *testing.T) {
	h, _ := newRouter(t, HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }})
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"}}`, rr.Body.String())

	h, _ = newRouter(t,
		HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }},
	)
	rr = testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"unavailable"}}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newRouter(t)
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newRouter(t)
	req := testutil.NewRequest(t, http.MethodOptions, "/v1/ping")
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := testutil.DoRequest(h, req)
	assert.Equal(t, "https://admin.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
