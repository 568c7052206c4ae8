// Package service is the Document Lifecycle Tracker: it validates uploads
// against the policy table and file constraints, stores accepted files and
// evaluates validity over time.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"vetting/internal/documents/models"
	"vetting/internal/documents/storage"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/sentinel"
	"vetting/pkg/requestcontext"
)

// Policy holds the configurable constraints.
type Policy struct {
	MaxBytes     int64
	AllowedMIME  []string
	ExpiringLead time.Duration
}

// DefaultPolicy is 10 MiB, PDF/PNG/JPEG and a 30 day lead.
func DefaultPolicy() Policy {
	return Policy{
		MaxBytes:     10 << 20,
		AllowedMIME:  []string{"application/pdf", "image/png", "image/jpeg"},
		ExpiringLead: 30 * 24 * time.Hour,
	}
}

// SubmitRequest is a raw upload.
type SubmitRequest struct {
	ProviderID id.ProviderID
	Type       string
	Filename   string
	Content    []byte
	ExpiresAt  *time.Time
}

// Tracker owns document validation, storage and evaluation. Supersession is
// applied by the caller under the provider lock via models.Supersede.
type Tracker struct {
	store  storage.ObjectStore
	policy Policy
	logger *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithPolicy(p Policy) Option {
	return func(t *Tracker) {
		t.policy = p
	}
}

func New(store storage.ObjectStore, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	t := &Tracker{
		store:  store,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Lead returns the expiring-soon window.
func (t *Tracker) Lead() time.Duration {
	return t.policy.ExpiringLead
}

// Validate checks type, expiration policy and file constraints. Nothing is
// stored; a failure here never reaches the object store.
func (t *Tracker) Validate(req SubmitRequest) (models.DocumentType, string, error) {
	docType, err := models.ParseDocumentType(req.Type)
	if err != nil {
		return "", "", err
	}
	if err := models.CheckExpiration(docType, req.ExpiresAt); err != nil {
		return "", "", err
	}
	if int64(len(req.Content)) > t.policy.MaxBytes {
		return "", "", models.ErrFileTooLarge
	}
	if len(req.Content) == 0 {
		return "", "", models.ErrUnsupportedFile
	}
	detected := mimetype.Detect(req.Content)
	for _, allowed := range t.policy.AllowedMIME {
		if detected.Is(allowed) {
			return docType, allowed, nil
		}
	}
	return "", "", models.ErrUnsupportedFile
}

// Submit validates and stores an upload and returns the new, not yet
// recorded, Document. Call Discard with its StorageRef if recording fails.
func (t *Tracker) Submit(ctx context.Context, req SubmitRequest) (*models.Document, error) {
	docType, contentType, err := t.Validate(req)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(req.Content)
	digest := hex.EncodeToString(sum[:])

	ref, err := t.store.Put(ctx, req.Content, storage.Metadata{
		ProviderID:   req.ProviderID.String(),
		DocumentType: string(docType),
		Filename:     req.Filename,
		ContentType:  contentType,
		SHA256:       digest,
	})
	if err != nil {
		t.logger.WarnContext(ctx, "document storage failed",
			"request_id", requestcontext.RequestID(ctx),
			"provider_id", req.ProviderID,
			"error", err,
		)
		return nil, storageError(err)
	}

	var expires *time.Time
	if req.ExpiresAt != nil {
		e := req.ExpiresAt.UTC()
		expires = &e
	}
	return &models.Document{
		ID:          id.NewDocumentID(),
		ProviderID:  req.ProviderID,
		Type:        docType,
		StorageRef:  ref,
		Filename:    req.Filename,
		ContentType: contentType,
		SizeBytes:   int64(len(req.Content)),
		SHA256:      digest,
		ExpiresAt:   expires,
		UploadedAt:  requestcontext.Now(ctx),
	}, nil
}

// Discard removes a stored object whose document was never recorded.
func (t *Tracker) Discard(ctx context.Context, ref string) {
	if err := t.store.Delete(ctx, ref); err != nil {
		t.logger.ErrorContext(ctx, "failed to discard orphaned document object",
			"request_id", requestcontext.RequestID(ctx),
			"storage_ref", ref,
			"error", err,
		)
	}
}

// Fetch returns the stored bytes for a document.
func (t *Tracker) Fetch(ctx context.Context, doc *models.Document) ([]byte, error) {
	b, err := t.store.Get(ctx, doc.StorageRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "document content not found")
		}
		return nil, storageError(err)
	}
	return b, nil
}

// Evaluate is models.Evaluate with the configured lead.
func (t *Tracker) Evaluate(doc *models.Document, asOf time.Time) models.Validity {
	return models.Evaluate(doc, asOf, t.policy.ExpiringLead)
}

func storageError(err error) error {
	return &dErrors.Error{
		Code:    models.ErrStorageUnavailable.Code,
		Reason:  models.ReasonStorageUnavailable,
		Message: models.ErrStorageUnavailable.Message,
		Err:     err,
	}
}
