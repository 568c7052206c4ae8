package npi

import (
	"errors"

	dErrors "vetting/pkg/domain-errors"
)

// Machine-readable outcomes surfaced to callers.
const (
	ReasonInvalidFormat           = "invalid_format"
	ReasonInvalidChecksum         = "invalid_checksum"
	ReasonNotFound                = "not_found"
	ReasonDeactivated             = "deactivated"
	ReasonVerificationUnavailable = "verification_unavailable"
)

var (
	// ErrInvalidFormat: candidate is not exactly ten ASCII digits.
	ErrInvalidFormat = dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidFormat, "npi must be exactly 10 digits")
	// ErrInvalidChecksum: well-formed candidate with a bad check digit.
	ErrInvalidChecksum = dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidChecksum, "npi check digit is invalid")
	// ErrVerificationUnavailable: the registry could not be reached. Retryable.
	ErrVerificationUnavailable = dErrors.NewWithReason(dErrors.CodeUnavailable, ReasonVerificationUnavailable, "npi registry unavailable")

	// ErrRecordNotFound is returned by Registry implementations when the
	// registry answered but holds no record for the number.
	ErrRecordNotFound = errors.New("npi record not found")
)
