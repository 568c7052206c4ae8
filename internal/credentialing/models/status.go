// Package models holds the credentialing profile aggregate and the pure
// status derivation over its facts.
package models

import "strings"

// Status is the derived credentialing status of a provider.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusPendingVerification Status = "pending_verification"
	StatusPendingReview       Status = "pending_review"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusSuspendedExpired    Status = "suspended_expired"
)

func (s Status) String() string { return string(s) }

// Bookable reports whether a provider in this status may be listed publicly.
func (s Status) Bookable() bool { return s == StatusApproved }

// Terminal reports whether no input can move the profile out of s.
func (s Status) Terminal() bool { return s == StatusRejected }

// Decision is an admin verdict on a profile in review.
type Decision string

const (
	DecisionApprove         Decision = "approve"
	DecisionReject          Decision = "reject"
	DecisionRequestMoreInfo Decision = "request_more_info"
)

// ParseDecision accepts the canonical names plus hyphenated spellings.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch d {
	case DecisionApprove, DecisionReject, DecisionRequestMoreInfo:
		return d, nil
	}
	return "", ErrUnknownDecision
}

// RequiresReason reports whether the reviewer must explain the decision.
func (d Decision) RequiresReason() bool {
	return d == DecisionReject || d == DecisionRequestMoreInfo
}

// Outcome is the status a decision moves a reviewed profile to.
func (d Decision) Outcome() Status {
	switch d {
	case DecisionApprove:
		return StatusApproved
	case DecisionReject:
		return StatusRejected
	default:
		return StatusPendingVerification
	}
}
