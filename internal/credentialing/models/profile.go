package models

import (
	"slices"
	"time"

	docmodels "vetting/internal/documents/models"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
	id "vetting/pkg/domain"
)

// NPISubmission records a provider entering (or re-entering) their number.
type NPISubmission struct {
	Seq         int64     `json:"seq"`
	NPI         string    `json:"npi"`
	LegalName   string    `json:"legal_name"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NPIVerification is a registry verdict as recorded against the profile.
type NPIVerification struct {
	Seq        int64                  `json:"seq"`
	Result     npi.VerificationResult `json:"result"`
	RecordedAt time.Time              `json:"recorded_at"`
}

// ExclusionCheck is a screening result as recorded against the profile.
type ExclusionCheck struct {
	Seq        int64                 `json:"seq"`
	Result     exclusion.CheckResult `json:"result"`
	RecordedAt time.Time             `json:"recorded_at"`
}

// AdminDecision is an append-only reviewer verdict.
type AdminDecision struct {
	ID             id.DecisionID `json:"id"`
	Seq            int64         `json:"seq"`
	ReviewerID     string        `json:"reviewer_id"`
	Decision       Decision      `json:"decision"`
	Reason         string        `json:"reason,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	DecidedAt      time.Time     `json:"decided_at"`
}

// Transition is an observed status change. The log is written for audit and
// event publication; Derive never reads it.
type Transition struct {
	Seq        int64     `json:"seq"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	At         time.Time `json:"at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Profile is the aggregate root for one provider's credentialing.
//
// Invariants:
//   - Every fact is immutable once appended; the only mutation is the
//     supersession pointer on a replaced document
//   - Seq is strictly increasing across all facts of the profile
//   - At most one current document per type
//   - Status is never stored as truth; callers use Derive
//
// New facts are staged as Changes so a store can persist exactly what a
// transition appended, all or nothing.
type Profile struct {
	ProviderID      id.ProviderID
	CreatedAt       time.Time
	Documents       []*docmodels.Document
	NPISubmissions  []NPISubmission
	Verifications   []NPIVerification
	ExclusionChecks []ExclusionCheck
	Decisions       []AdminDecision
	Transitions     []Transition
	LastSeq         int64

	changes Changes
}

// Changes are the facts appended since the profile was loaded.
type Changes struct {
	Created         bool
	Documents       []*docmodels.Document
	Superseded      []*docmodels.Document
	NPISubmissions  []NPISubmission
	Verifications   []NPIVerification
	ExclusionChecks []ExclusionCheck
	Decisions       []AdminDecision
	Transitions     []Transition
}

// Empty reports whether nothing was staged.
func (c Changes) Empty() bool {
	return !c.Created && len(c.Documents) == 0 && len(c.Superseded) == 0 &&
		len(c.NPISubmissions) == 0 && len(c.Verifications) == 0 &&
		len(c.ExclusionChecks) == 0 && len(c.Decisions) == 0 && len(c.Transitions) == 0
}

// NewProfile starts an empty profile. It is persisted together with the
// first fact appended to it.
func NewProfile(providerID id.ProviderID, now time.Time) *Profile {
	return &Profile{
		ProviderID: providerID,
		CreatedAt:  now,
		changes:    Changes{Created: true},
	}
}

func (p *Profile) nextSeq() int64 {
	p.LastSeq++
	return p.LastSeq
}

// TakeChanges returns and clears the staged facts.
func (p *Profile) TakeChanges() Changes {
	c := p.changes
	p.changes = Changes{}
	return c
}

// AddDocument appends doc as the current document of its type and returns the
// document it superseded, if any.
func (p *Profile) AddDocument(doc *docmodels.Document) *docmodels.Document {
	doc.Seq = p.nextSeq()
	prior := docmodels.Supersede(p.Documents, doc)
	p.Documents = append(p.Documents, doc)
	p.changes.Documents = append(p.changes.Documents, doc)
	if prior != nil {
		p.changes.Superseded = append(p.changes.Superseded, prior)
	}
	return prior
}

func (p *Profile) AddNPISubmission(number, legalName string, at time.Time) NPISubmission {
	s := NPISubmission{Seq: p.nextSeq(), NPI: number, LegalName: legalName, SubmittedAt: at}
	p.NPISubmissions = append(p.NPISubmissions, s)
	p.changes.NPISubmissions = append(p.changes.NPISubmissions, s)
	return s
}

func (p *Profile) AddVerification(result npi.VerificationResult, at time.Time) NPIVerification {
	v := NPIVerification{Seq: p.nextSeq(), Result: result, RecordedAt: at}
	p.Verifications = append(p.Verifications, v)
	p.changes.Verifications = append(p.changes.Verifications, v)
	return v
}

func (p *Profile) AddExclusionCheck(result exclusion.CheckResult, at time.Time) ExclusionCheck {
	c := ExclusionCheck{Seq: p.nextSeq(), Result: result, RecordedAt: at}
	p.ExclusionChecks = append(p.ExclusionChecks, c)
	p.changes.ExclusionChecks = append(p.changes.ExclusionChecks, c)
	return c
}

// AddDecision assigns the decision its sequence number and appends it.
func (p *Profile) AddDecision(d AdminDecision) AdminDecision {
	d.Seq = p.nextSeq()
	p.Decisions = append(p.Decisions, d)
	p.changes.Decisions = append(p.changes.Decisions, d)
	return d
}

func (p *Profile) AddTransition(from, to Status, at, recordedAt time.Time) Transition {
	t := Transition{Seq: p.nextSeq(), From: from, To: to, At: at, RecordedAt: recordedAt}
	p.Transitions = append(p.Transitions, t)
	p.changes.Transitions = append(p.changes.Transitions, t)
	return t
}

// CurrentNPI returns the latest NPI submission, or nil.
func (p *Profile) CurrentNPI() *NPISubmission {
	if len(p.NPISubmissions) == 0 {
		return nil
	}
	return &p.NPISubmissions[len(p.NPISubmissions)-1]
}

// LatestVerification returns the latest recorded verdict for candidate.
func (p *Profile) LatestVerification(candidate string) *NPIVerification {
	for i := len(p.Verifications) - 1; i >= 0; i-- {
		if p.Verifications[i].Result.Candidate == candidate {
			return &p.Verifications[i]
		}
	}
	return nil
}

// LatestExclusion returns the latest screening of the given name and number.
func (p *Profile) LatestExclusion(name, number string) *ExclusionCheck {
	for i := len(p.ExclusionChecks) - 1; i >= 0; i-- {
		r := p.ExclusionChecks[i].Result
		if r.NPI == number && exclusion.NormalizeName(r.Name) == exclusion.NormalizeName(name) {
			return &p.ExclusionChecks[i]
		}
	}
	return nil
}

// DecisionByKey finds a decision by idempotency key.
func (p *Profile) DecisionByKey(key string) *AdminDecision {
	if key == "" {
		return nil
	}
	for i := range p.Decisions {
		if p.Decisions[i].IdempotencyKey == key {
			return &p.Decisions[i]
		}
	}
	return nil
}

// Document returns the document with the given id, current or not.
func (p *Profile) Document(docID id.DocumentID) *docmodels.Document {
	for _, d := range p.Documents {
		if d.ID == docID {
			return d
		}
	}
	return nil
}

// CurrentDocuments returns the current document of each type.
func (p *Profile) CurrentDocuments() map[docmodels.DocumentType]*docmodels.Document {
	return docmodels.Current(p.Documents)
}

// RecordedStatus is the status of the last logged transition.
func (p *Profile) RecordedStatus() Status {
	if len(p.Transitions) == 0 {
		return StatusDraft
	}
	return p.Transitions[len(p.Transitions)-1].To
}

// Clone returns a deep copy without staged changes.
func (p *Profile) Clone() *Profile {
	c := &Profile{
		ProviderID:      p.ProviderID,
		CreatedAt:       p.CreatedAt,
		NPISubmissions:  slices.Clone(p.NPISubmissions),
		Verifications:   slices.Clone(p.Verifications),
		ExclusionChecks: slices.Clone(p.ExclusionChecks),
		Decisions:       slices.Clone(p.Decisions),
		Transitions:     slices.Clone(p.Transitions),
		LastSeq:         p.LastSeq,
	}
	c.Documents = make([]*docmodels.Document, len(p.Documents))
	for i, d := range p.Documents {
		cp := *d
		c.Documents[i] = &cp
	}
	return c
}
