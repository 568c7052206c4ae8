// Package models defines credential documents, the per-type expiration
// policy table and the pure validity evaluation.
package models

import (
	"strings"
	"time"

	id "vetting/pkg/domain"
)

// DocumentType is the closed set of credential artifacts.
type DocumentType string

const (
	TypeLicense              DocumentType = "license"
	TypeLiabilityInsurance   DocumentType = "liability_insurance"
	TypeMalpracticeInsurance DocumentType = "malpractice_insurance"
	TypeBoardCertification   DocumentType = "board_certification"
	TypeOther                DocumentType = "other"
)

// ExpirationRule says whether a type carries an expiration date.
type ExpirationRule int

const (
	ExpirationRequired ExpirationRule = iota
	ExpirationOptional
	ExpirationForbidden
)

// TypePolicy is one row of the policy table.
type TypePolicy struct {
	Expiration ExpirationRule
	Label      string
}

// Policies is the per-type policy table. Adding a document type is a new row
// here and nothing else.
var Policies = map[DocumentType]TypePolicy{
	TypeLicense:              {Expiration: ExpirationRequired, Label: "Professional license"},
	TypeLiabilityInsurance:   {Expiration: ExpirationRequired, Label: "Liability insurance"},
	TypeMalpracticeInsurance: {Expiration: ExpirationRequired, Label: "Malpractice insurance"},
	TypeBoardCertification:   {Expiration: ExpirationOptional, Label: "Board certification"},
	TypeOther:                {Expiration: ExpirationForbidden, Label: "Other"},
}

// ParseDocumentType accepts the canonical names plus hyphenated spellings
// ("liability-insurance").
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, ok := Policies[t]; !ok {
		return "", ErrUnknownType
	}
	return t, nil
}

// PolicyFor returns the policy row for t.
func PolicyFor(t DocumentType) (TypePolicy, bool) {
	p, ok := Policies[t]
	return p, ok
}

// CheckExpiration enforces the table: required types need a date, forbidden
// types must not carry one.
func CheckExpiration(t DocumentType, expiresAt *time.Time) error {
	p, ok := Policies[t]
	if !ok {
		return ErrUnknownType
	}
	switch {
	case p.Expiration == ExpirationRequired && expiresAt == nil:
		return ErrMissingExpiration
	case p.Expiration == ExpirationForbidden && expiresAt != nil:
		return ErrUnexpectedExpiration
	}
	return nil
}

// Validity is the evaluated state of a document at a reference time.
type Validity string

const (
	ValidityValid        Validity = "valid"
	ValidityExpiringSoon Validity = "expiring_soon"
	ValidityExpired      Validity = "expired"
	ValiditySuperseded   Validity = "superseded"
)

// Document is one uploaded credential artifact. Records are immutable apart
// from the supersession pointer, which is set exactly once.
type Document struct {
	ID           id.DocumentID
	ProviderID   id.ProviderID
	Type         DocumentType
	StorageRef   string
	Filename     string
	ContentType  string
	SizeBytes    int64
	SHA256       string
	ExpiresAt    *time.Time
	UploadedAt   time.Time
	Seq          int64
	SupersededBy *id.DocumentID
	SupersededAt *time.Time
}

// IsCurrent reports whether the document has not been superseded.
func (d *Document) IsCurrent() bool {
	return d.SupersededBy == nil
}

// Evaluate returns the validity of doc at asOf. Expired when asOf is at or
// past the expiration; expiring soon within lead before it. Documents without
// an expiration are valid once accepted.
func Evaluate(doc *Document, asOf time.Time, lead time.Duration) Validity {
	if !doc.IsCurrent() {
		return ValiditySuperseded
	}
	if doc.ExpiresAt == nil {
		return ValidityValid
	}
	switch {
	case !asOf.Before(*doc.ExpiresAt):
		return ValidityExpired
	case !asOf.Before(doc.ExpiresAt.Add(-lead)):
		return ValidityExpiringSoon
	default:
		return ValidityValid
	}
}

// Supersede marks the current document of next's type as replaced by next
// and returns the superseded record, if any. docs is modified in place; the
// caller appends next afterwards.
func Supersede(docs []*Document, next *Document) *Document {
	for _, d := range docs {
		if d.Type == next.Type && d.IsCurrent() && d.ID != next.ID {
			nextID := next.ID
			at := next.UploadedAt
			d.SupersededBy = &nextID
			d.SupersededAt = &at
			return d
		}
	}
	return nil
}

// Current returns the current document of each type.
func Current(docs []*Document) map[DocumentType]*Document {
	out := make(map[DocumentType]*Document)
	for _, d := range docs {
		if d.IsCurrent() {
			out[d.Type] = d
		}
	}
	return out
}
