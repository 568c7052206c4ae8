package npi

import "time"

// RegistryRecord is what the registry reports for an enumerated number.
type RegistryRecord struct {
	Number          string `json:"number"`
	Name            string `json:"name"`
	EnumerationType string `json:"enumeration_type"`
	Specialty       string `json:"specialty"`
	Status          string `json:"status"`
	City            string `json:"city"`
	State           string `json:"state"`
}

// StatusActive is the registry's enumeration status for an active number.
const StatusActive = "A"

// Active reports whether the registry lists the number as active.
func (r RegistryRecord) Active() bool {
	return r.Status == StatusActive
}

// VerificationResult is an immutable registry verdict for one candidate.
// Invalid results carry Reason (not_found or deactivated); local format and
// checksum failures are returned as errors and never become results.
type VerificationResult struct {
	Candidate string          `json:"candidate"`
	Valid     bool            `json:"valid"`
	Reason    string          `json:"reason,omitempty"`
	Record    *RegistryRecord `json:"record,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Terminal reports whether the result is a definite negative for this number.
func (r *VerificationResult) Terminal() bool {
	return r != nil && !r.Valid
}
