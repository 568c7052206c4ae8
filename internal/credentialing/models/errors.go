package models

import dErrors "vetting/pkg/domain-errors"

const (
	ReasonProfileNotFound  = "profile_not_found"
	ReasonProfileRejected  = "profile_rejected"
	ReasonNotInReview      = "not_pending_review"
	ReasonNPILocked        = "npi_locked"
	ReasonNPIMissing       = "npi_missing"
	ReasonReasonRequired   = "reason_required"
	ReasonUnknownDecision  = "unknown_decision"
	ReasonDocumentNotFound = "document_not_found"
	ReasonLegalNameMissing = "legal_name_required"
)

var (
	ErrProfileNotFound  = dErrors.NewWithReason(dErrors.CodeNotFound, ReasonProfileNotFound, "credentialing profile not found")
	ErrDocumentNotFound = dErrors.NewWithReason(dErrors.CodeNotFound, ReasonDocumentNotFound, "document not found")
	// ErrProfileRejected: rejected profiles accept no further input.
	ErrProfileRejected = dErrors.NewWithReason(dErrors.CodeInvalidState, ReasonProfileRejected, "profile has been rejected")
	ErrNotInReview     = dErrors.NewWithReason(dErrors.CodeInvalidState, ReasonNotInReview, "profile is not pending review")
	// ErrNPILocked: the number cannot change once the profile reached review.
	ErrNPILocked  = dErrors.NewWithReason(dErrors.CodeInvalidState, ReasonNPILocked, "npi cannot change after verification completed")
	ErrNPIMissing = dErrors.NewWithReason(dErrors.CodeInvalidState, ReasonNPIMissing, "no npi has been submitted")

	ErrReasonRequired   = dErrors.NewWithReason(dErrors.CodeValidation, ReasonReasonRequired, "reason is required for reject and request_more_info")
	ErrUnknownDecision  = dErrors.NewWithReason(dErrors.CodeValidation, ReasonUnknownDecision, "decision must be approve, reject or request_more_info")
	ErrLegalNameMissing = dErrors.NewWithReason(dErrors.CodeValidation, ReasonLegalNameMissing, "legal_name is required")
)
