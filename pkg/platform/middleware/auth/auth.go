// Package auth guards admin routes with reviewer bearer tokens.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	jwttoken "vetting/internal/jwt_token"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/httputil"
	"vetting/pkg/requestcontext"
)

// JWTValidator is satisfied by *jwttoken.JWTService.
type JWTValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// RequireReviewer admits requests carrying a valid token with the reviewer
// role and puts the token subject in the context as the reviewer id.
func RequireReviewer(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !claims.HasRole(jwttoken.RoleReviewer) {
				logger.WarnContext(ctx, "forbidden - reviewer role required",
					"request_id", requestID,
					"subject", claims.Subject,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "reviewer role required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithReviewerID(ctx, claims.Subject)))
		})
	}
}
