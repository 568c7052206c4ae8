package models

import (
	"time"

	docmodels "vetting/internal/documents/models"
	id "vetting/pkg/domain"
)

// EventType names a credentialing event on the wire.
type EventType string

const (
	EventStatusChanged     EventType = "credentialing.status_changed"
	EventDocumentSubmitted EventType = "credentialing.document_submitted"
	EventDecisionRecorded  EventType = "credentialing.decision_recorded"
	EventDocumentExpiring  EventType = "credentialing.document_expiring"
	EventDocumentExpired   EventType = "credentialing.document_expired"
)

// Event is published after the facts it describes are committed. Only the
// fields relevant to Type are set.
type Event struct {
	Type       EventType     `json:"type"`
	ProviderID id.ProviderID `json:"provider_id"`
	OccurredAt time.Time     `json:"occurred_at"`
	RequestID  string        `json:"request_id,omitempty"`

	From Status `json:"from,omitempty"`
	To   Status `json:"to,omitempty"`

	DocumentID   *id.DocumentID         `json:"document_id,omitempty"`
	DocumentType docmodels.DocumentType `json:"document_type,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`

	Decision   Decision `json:"decision,omitempty"`
	ReviewerID string   `json:"reviewer_id,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// StatusChanged builds the event for a recorded transition.
func StatusChanged(providerID id.ProviderID, t Transition) Event {
	return Event{
		Type:       EventStatusChanged,
		ProviderID: providerID,
		OccurredAt: t.At,
		From:       t.From,
		To:         t.To,
	}
}

// DocumentEvent builds a document-scoped event of the given type.
func DocumentEvent(typ EventType, doc *docmodels.Document, at time.Time) Event {
	docID := doc.ID
	return Event{
		Type:         typ,
		ProviderID:   doc.ProviderID,
		OccurredAt:   at,
		DocumentID:   &docID,
		DocumentType: doc.Type,
		ExpiresAt:    doc.ExpiresAt,
	}
}
