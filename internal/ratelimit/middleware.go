package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/httputil"
	"vetting/pkg/requestcontext"
)

// Middleware rejects callers exceeding limit requests per window with 429.
// Store errors fail open.
func Middleware(store Store, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := store.Allow(ctx, ip, limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retry := int(time.Until(result.ResetAt).Seconds()) + 1
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				logger.WarnContext(ctx, "rate limit exceeded",
					"client_ip", ip,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
