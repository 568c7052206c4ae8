package models

import (
	"time"

	docmodels "vetting/internal/documents/models"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
	id "vetting/pkg/domain"
)

// StatusView is the read model returned by every credentialing operation.
type StatusView struct {
	ProviderID id.ProviderID  `json:"provider_id"`
	Status     Status         `json:"status"`
	Since      time.Time      `json:"since"`
	Bookable   bool           `json:"bookable"`
	Blockers   []Blocker      `json:"blockers"`
	NPI        *NPIView       `json:"npi,omitempty"`
	Exclusion  *ExclusionView `json:"exclusion,omitempty"`
	Documents  []DocumentView `json:"documents"`
	Decisions  []DecisionView `json:"decisions"`
	AsOf       time.Time      `json:"as_of"`
}

// NPIView is the current NPI submission and its latest verdict.
type NPIView struct {
	Number       string                  `json:"number"`
	LegalName    string                  `json:"legal_name"`
	SubmittedAt  time.Time               `json:"submitted_at"`
	Verified     bool                    `json:"verified"`
	Verification *npi.VerificationResult `json:"verification,omitempty"`
}

// ExclusionView is the latest screening of the current submission.
type ExclusionView struct {
	Outcome        exclusion.Outcome `json:"outcome"`
	CheckedAt      time.Time         `json:"checked_at"`
	Fresh          bool              `json:"fresh"`
	MatchedEntries []string          `json:"matched_entries,omitempty"`
	FailedSources  []string          `json:"failed_sources,omitempty"`
}

// DocumentView is a document with its validity at AsOf.
type DocumentView struct {
	ID           id.DocumentID          `json:"id"`
	Type         docmodels.DocumentType `json:"type"`
	Filename     string                 `json:"filename"`
	ContentType  string                 `json:"content_type"`
	SizeBytes    int64                  `json:"size_bytes"`
	SHA256       string                 `json:"sha256"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
	UploadedAt   time.Time              `json:"uploaded_at"`
	Validity     docmodels.Validity     `json:"validity"`
	SupersededBy *id.DocumentID         `json:"superseded_by,omitempty"`
}

type DecisionView struct {
	ID         id.DecisionID `json:"id"`
	ReviewerID string        `json:"reviewer_id"`
	Decision   Decision      `json:"decision"`
	Reason     string        `json:"reason,omitempty"`
	DecidedAt  time.Time     `json:"decided_at"`
}

// SubmissionResult is returned by submit-document.
type SubmissionResult struct {
	Document   DocumentView  `json:"document"`
	Superseded *DocumentView `json:"superseded,omitempty"`
	Profile    *StatusView   `json:"profile"`
}

// DocumentContent carries stored bytes for download.
type DocumentContent struct {
	Document DocumentView
	Content  []byte
}

// NewDocumentView evaluates doc at asOf.
func NewDocumentView(doc *docmodels.Document, asOf time.Time, lead time.Duration) DocumentView {
	return DocumentView{
		ID:           doc.ID,
		Type:         doc.Type,
		Filename:     doc.Filename,
		ContentType:  doc.ContentType,
		SizeBytes:    doc.SizeBytes,
		SHA256:       doc.SHA256,
		ExpiresAt:    doc.ExpiresAt,
		UploadedAt:   doc.UploadedAt,
		Validity:     docmodels.Evaluate(doc, asOf, lead),
		SupersededBy: doc.SupersededBy,
	}
}
