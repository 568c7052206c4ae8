// Package handler exposes the credentialing workflow over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vetting/internal/credentialing/models"
	"vetting/internal/credentialing/service"
	docmodels "vetting/internal/documents/models"
	docservice "vetting/internal/documents/service"
	"vetting/internal/review"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/httputil"
	"vetting/pkg/platform/validate"
	"vetting/pkg/requestcontext"
)

// multipartOverhead is allowed on top of the file size limit for the form's
// boundaries and text fields.
const multipartOverhead = 64 << 10

// Service is satisfied by *service.Service.
type Service interface {
	SubmitDocument(ctx context.Context, req docservice.SubmitRequest) (*models.SubmissionResult, error)
	SubmitNPI(ctx context.Context, providerID id.ProviderID, number, legalName string) (*models.StatusView, error)
	Verify(ctx context.Context, providerID id.ProviderID, force bool) (*models.StatusView, error)
	GetStatus(ctx context.Context, providerID id.ProviderID) (*models.StatusView, error)
	ListDocuments(ctx context.Context, providerID id.ProviderID) ([]models.DocumentView, error)
	OpenDocument(ctx context.Context, providerID id.ProviderID, docID id.DocumentID) (*models.DocumentContent, error)
	Decide(ctx context.Context, providerID id.ProviderID, req service.DecideRequest) (*models.StatusView, error)
}

// ReviewService is satisfied by *review.Service.
type ReviewService interface {
	ReviewQueue(ctx context.Context) ([]review.QueueEntry, error)
	ExpirationAlerts(ctx context.Context) ([]review.AlertGroup, error)
}

// Handler wires credentialing endpoints to the services.
type Handler struct {
	service        Service
	review         ReviewService
	logger         *slog.Logger
	maxUploadBytes int64
}

// New constructs a credentialing handler. maxUploadBytes bounds the request
// body of document uploads.
func New(service Service, review ReviewService, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = docservice.DefaultPolicy().MaxBytes
	}
	return &Handler{
		service:        service,
		review:         review,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts the provider-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/providers/{providerID}", func(r chi.Router) {
		r.Get("/", h.HandleGetStatus)
		r.Post("/documents", h.HandleSubmitDocument)
		r.Get("/documents", h.HandleListDocuments)
		r.Get("/documents/{documentID}/content", h.HandleDocumentContent)
		r.Put("/npi", h.HandleSubmitNPI)
		r.Post("/verify", h.HandleVerify)
	})
}

// RegisterAdmin mounts the reviewer endpoints. The caller guards r with the
// reviewer auth middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/v1/admin/providers/{providerID}/decisions", h.HandleDecide)
	r.Get("/v1/admin/review-queue", h.HandleReviewQueue)
	r.Get("/v1/admin/expiration-alerts", h.HandleExpirationAlerts)
}

// HandleSubmitDocument handles POST /v1/providers/{providerID}/documents.
func (h *Handler) HandleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, docmodels.ErrFileTooLarge)
			return
		}
		h.logger.WarnContext(ctx, "invalid multipart upload",
			"request_id", requestID,
			"provider_id", providerID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request must be multipart/form-data"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	form := &uploadForm{Type: r.FormValue("type"), ExpiresAt: r.FormValue("expires_at")}
	if err := validate.Struct(form); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := form.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file is required"))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read uploaded file"))
		return
	}

	result, err := h.service.SubmitDocument(ctx, docservice.SubmitRequest{
		ProviderID: providerID,
		Type:       form.Type,
		Filename:   header.Filename,
		Content:    content,
		ExpiresAt:  form.parsedExpiresAt,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "document submission failed", providerID)
		return
	}

	h.logger.InfoContext(ctx, "document submitted",
		"request_id", requestID,
		"provider_id", providerID,
		"document_id", result.Document.ID,
		"document_type", result.Document.Type,
		"status", result.Profile.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleListDocuments handles GET /v1/providers/{providerID}/documents and
// includes superseded documents.
func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	docs, err := h.service.ListDocuments(ctx, providerID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list documents", providerID)
		return
	}
	if docs == nil {
		docs = []models.DocumentView{}
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentListResponse{
		ProviderID: providerID,
		Documents:  docs,
		AsOf:       requestcontext.Now(ctx),
	})
}

// HandleDocumentContent handles GET /v1/providers/{providerID}/documents/{documentID}/content.
func (h *Handler) HandleDocumentContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	content, err := h.service.OpenDocument(ctx, providerID, docID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to open document", providerID)
		return
	}

	w.Header().Set("Content-Type", content.Document.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Content)))
	w.Header().Set("X-Content-SHA256", content.Document.SHA256)
	if content.Document.Filename != "" {
		w.Header().Set("Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": content.Document.Filename}))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content.Content)
}

// HandleSubmitNPI handles PUT /v1/providers/{providerID}/npi.
func (h *Handler) HandleSubmitNPI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitNPIRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.SubmitNPI(ctx, providerID, req.NPI, req.LegalName)
	if err != nil {
		h.writeServiceError(ctx, w, err, "npi submission failed", providerID)
		return
	}

	h.logger.InfoContext(ctx, "npi submitted",
		"request_id", requestID,
		"provider_id", providerID,
		"status", view.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleVerify handles POST /v1/providers/{providerID}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.Verify(ctx, providerID, req.Force)
	if err != nil {
		h.writeServiceError(ctx, w, err, "verification failed", providerID)
		return
	}

	h.logger.InfoContext(ctx, "verification completed",
		"request_id", requestID,
		"provider_id", providerID,
		"force", req.Force,
		"status", view.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleGetStatus handles GET /v1/providers/{providerID}.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetStatus(ctx, providerID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to get profile status", providerID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleDecide handles POST /v1/admin/providers/{providerID}/decisions. The
// Idempotency-Key header is used when the body carries no key.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	reviewerID := requestcontext.ReviewerID(ctx)
	if reviewerID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "reviewer authentication required"))
		return
	}
	providerID, ok := h.providerID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get("Idempotency-Key")
	}

	view, err := h.service.Decide(ctx, providerID, service.DecideRequest{
		Decision:       req.ParsedDecision(),
		Reason:         req.Reason,
		ReviewerID:     reviewerID,
		IdempotencyKey: key,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "decision failed", providerID)
		return
	}

	h.logger.InfoContext(ctx, "decision recorded",
		"request_id", requestID,
		"provider_id", providerID,
		"reviewer_id", reviewerID,
		"decision", req.ParsedDecision(),
		"status", view.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleReviewQueue handles GET /v1/admin/review-queue.
func (h *Handler) HandleReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.review.ReviewQueue(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReviewQueueResponse{
		Items: items,
		Count: len(items),
		AsOf:  requestcontext.Now(ctx),
	})
}

// HandleExpirationAlerts handles GET /v1/admin/expiration-alerts.
func (h *Handler) HandleExpirationAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := h.review.ExpirationAlerts(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ExpirationAlertsResponse{
		Groups: groups,
		Count:  len(groups),
		AsOf:   requestcontext.Now(ctx),
	})
}

func (h *Handler) providerID(w http.ResponseWriter, r *http.Request) (id.ProviderID, bool) {
	providerID, err := id.ParseProviderID(chi.URLParam(r, "providerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProviderID{}, false
	}
	return providerID, true
}

// writeServiceError logs server-side failures at Error and caller mistakes
// at Warn, then writes the envelope.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string, providerID id.ProviderID) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"provider_id", providerID,
		"error", err,
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeInvariantViolation:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
