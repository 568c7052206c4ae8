package testutil

import (
	"net/http"
	"time"

	"vetting/pkg/requestcontext"
)

// WithReviewer marks the request as authenticated by a reviewer, which is what
// the reviewer auth middleware does for admin routes.
func WithReviewer(req *http.Request, reviewerID string) *http.Request {
	return req.WithContext(requestcontext.WithReviewerID(req.Context(), reviewerID))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
