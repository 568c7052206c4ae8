// Package domain holds identifier types shared across bounded contexts.
//
// Each ID is a distinct named UUID type so a DocumentID can never be passed
// where a ProviderID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "vetting/pkg/domain-errors"
)

type (
	ProviderID uuid.UUID
	DocumentID uuid.UUID
	DecisionID uuid.UUID
)

func NewProviderID() ProviderID { return ProviderID(uuid.New()) }
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }
func NewDecisionID() DecisionID { return DecisionID(uuid.New()) }

func (id ProviderID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id DecisionID) String() string { return uuid.UUID(id).String() }

func (id ProviderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DecisionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseProviderID parses a provider identifier at a trust boundary.
func ParseProviderID(s string) (ProviderID, error) {
	u, err := parseUUID(s, "provider_id")
	return ProviderID(u), err
}

// ParseDocumentID parses a document identifier at a trust boundary.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document_id")
	return DocumentID(u), err
}

// ParseDecisionID parses a decision identifier at a trust boundary.
func ParseDecisionID(s string) (DecisionID, error) {
	u, err := parseUUID(s, "decision_id")
	return DecisionID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs.
func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

// Text marshalling keeps IDs as UUID strings in JSON payloads.

func (id ProviderID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DocumentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id DecisionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ProviderID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DocumentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DecisionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
