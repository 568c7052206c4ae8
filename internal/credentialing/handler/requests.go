package handler

import (
	"strings"
	"time"

	"vetting/internal/credentialing/models"
	dErrors "vetting/pkg/domain-errors"
)

// uploadForm holds the non-file fields of a multipart document upload.
type uploadForm struct {
	Type      string `form:"type" validate:"required,max=64"`
	ExpiresAt string `form:"expires_at" validate:"max=64"`

	parsedExpiresAt *time.Time
}

// Validate parses expires_at as RFC 3339 or a plain date (midnight UTC).
func (f *uploadForm) Validate() error {
	f.Type = strings.TrimSpace(f.Type)
	raw := strings.TrimSpace(f.ExpiresAt)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			f.parsedExpiresAt = &t
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, "expires_at must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

// SubmitNPIRequest is the body of PUT /v1/providers/{providerID}/npi. The
// number's format is checked by the verifier so callers get its reason code.
type SubmitNPIRequest struct {
	NPI       string `json:"npi" validate:"max=32"`
	LegalName string `json:"legal_name" validate:"required,max=256"`
}

func (r *SubmitNPIRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.NPI = strings.TrimSpace(r.NPI)
	r.LegalName = strings.TrimSpace(r.LegalName)
	if r.LegalName == "" {
		return dErrors.New(dErrors.CodeValidation, "legal_name is required")
	}
	return nil
}

// VerifyRequest is the optional body of POST /v1/providers/{providerID}/verify.
type VerifyRequest struct {
	Force bool `json:"force"`
}

func (r *VerifyRequest) Validate() error { return nil }

// DecideRequest is the body of POST /v1/admin/providers/{providerID}/decisions.
type DecideRequest struct {
	Decision       string `json:"decision" validate:"required,max=32"`
	Reason         string `json:"reason" validate:"max=2000"`
	IdempotencyKey string `json:"idempotency_key" validate:"max=128"`

	parsedDecision models.Decision
}

func (r *DecideRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	decision, err := models.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	r.parsedDecision = decision
	r.Reason = strings.TrimSpace(r.Reason)
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	return nil
}

// ParsedDecision returns the validated decision.
func (r *DecideRequest) ParsedDecision() models.Decision {
	return r.parsedDecision
}
