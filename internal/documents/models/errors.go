package models

import dErrors "vetting/pkg/domain-errors"

const (
	ReasonUnsupportedType      = "unsupported_document_type"
	ReasonMissingExpiration    = "missing_expiration"
	ReasonUnexpectedExpiration = "unexpected_expiration"
	ReasonUnsupportedFile      = "unsupported_file"
	ReasonFileTooLarge         = "file_too_large"
	ReasonStorageUnavailable   = "storage_unavailable"
)

var (
	ErrUnknownType          = dErrors.NewWithReason(dErrors.CodeValidation, ReasonUnsupportedType, "unknown document type")
	ErrMissingExpiration    = dErrors.NewWithReason(dErrors.CodeValidation, ReasonMissingExpiration, "expiration date is required for this document type")
	ErrUnexpectedExpiration = dErrors.NewWithReason(dErrors.CodeValidation, ReasonUnexpectedExpiration, "this document type does not carry an expiration date")
	ErrUnsupportedFile      = dErrors.NewWithReason(dErrors.CodeUnsupportedMediaType, ReasonUnsupportedFile, "file type is not accepted")
	ErrFileTooLarge         = dErrors.NewWithReason(dErrors.CodePayloadTooLarge, ReasonFileTooLarge, "file exceeds the upload size limit")
	ErrStorageUnavailable   = dErrors.NewWithReason(dErrors.CodeUnavailable, ReasonStorageUnavailable, "document storage unavailable")
)
