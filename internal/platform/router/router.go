// Package router assembles the HTTP surface: shared middleware, ops
// endpoints, and the module routes.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vetting/internal/platform/metrics"
	"vetting/pkg/platform/httputil"
	"vetting/pkg/platform/middleware/auth"
	"vetting/pkg/platform/middleware/metadata"
	"vetting/pkg/platform/middleware/request"
	"vetting/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

// Module is implemented by handlers that expose public and reviewer routes.
type Module interface {
	Register(r chi.Router)
	RegisterAdmin(r chi.Router)
}

// HealthCheck is one dependency probed by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options configures New.
type Options struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Reviewers   auth.JWTValidator
	ServiceName string
	Health      []HealthCheck
	// RateLimit, when set, wraps the public module routes.
	RateLimit func(http.Handler) http.Handler
}

// New builds the root handler. Admin routes of every module sit behind the
// reviewer token check.
func New(opts Options, modules ...Module) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(opts.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(opts.Logger))
	r.Use(opts.Metrics.Middleware)
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", request.HeaderRequestID},
			ExposedHeaders:   []string{request.HeaderRequestID, "X-Content-SHA256"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", healthHandler(opts.Health, opts.Logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}
		for _, m := range modules {
			m.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireReviewer(opts.Reviewers, opts.Logger))
		for _, m := range modules {
			m.RegisterAdmin(r)
		}
	})

	name := opts.ServiceName
	if name == "" {
		name = "vetting"
	}
	return otelhttp.NewHandler(r, name,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
