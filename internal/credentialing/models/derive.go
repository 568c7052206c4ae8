package models

import (
	"cmp"
	"slices"
	"strings"
	"time"

	docmodels "vetting/internal/documents/models"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
)

// Policy holds the configurable inputs of the derivation.
type Policy struct {
	RequiredTypes      []docmodels.DocumentType
	ExclusionFreshness time.Duration
}

// DefaultPolicy requires a license and liability insurance and treats a
// screening as fresh for 30 days.
func DefaultPolicy() Policy {
	return Policy{
		RequiredTypes:      []docmodels.DocumentType{docmodels.TypeLicense, docmodels.TypeLiabilityInsurance},
		ExclusionFreshness: 30 * 24 * time.Hour,
	}
}

// Blocker codes explain why a profile is not advancing.
const (
	BlockerMissingDocument        = "missing_document"
	BlockerExpiredDocument        = "expired_document"
	BlockerNPIMissing             = "npi_missing"
	BlockerNPIUnverified          = "npi_unverified"
	BlockerNPINotFound            = "npi_not_found"
	BlockerNPIDeactivated         = "npi_deactivated"
	BlockerExclusionPending       = "exclusion_pending"
	BlockerExclusionMatch         = "exclusion_match"
	BlockerExclusionIndeterminate = "exclusion_indeterminate"
	BlockerExclusionStale         = "exclusion_stale"
	BlockerMoreInfoRequested      = "more_info_requested"
	BlockerAwaitingReview         = "awaiting_review"
)

// Blocker is one reason the profile cannot move forward.
type Blocker struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Derivation is the status of a profile at a reference time.
type Derivation struct {
	Status   Status
	Since    time.Time
	Blockers []Blocker
	// Path lists every transition the replay went through, oldest first.
	Path []Transition
}

type eventKind int

const (
	evDocument eventKind = iota
	evNPI
	evVerification
	evExclusion
	evDecision
	// evExpiry sorts after facts sharing its instant.
	evExpiry
)

type event struct {
	at   time.Time
	kind eventKind
	seq  int64

	doc      *docmodels.Document
	npi      *NPISubmission
	verify   *NPIVerification
	screen   *ExclusionCheck
	decision *AdminDecision
}

// replay is the prefix of facts observed so far.
type replay struct {
	policy Policy

	status Status
	since  time.Time
	path   []Transition

	current       map[docmodels.DocumentType]*docmodels.Document
	npi           *NPISubmission
	verifications map[string]*NPIVerification
	screening     *ExclusionCheck
	moreInfo      bool
}

// Derive folds the profile's facts, ordered by time then sequence, into its
// status at asOf. Document expiration instants are replayed as checkpoints so
// demotions land at the moment a document expired, not when it was noticed.
// Facts after asOf are ignored.
//
// Transitions:
//   - Draft to PendingVerification when every required type has a current,
//     unexpired document and an NPI was submitted
//   - PendingVerification to PendingReview when the current NPI verified
//     valid and a fresh screening of the current name and NPI is clear, and
//     no request for more information is outstanding
//   - PendingReview to Approved, Rejected or back to PendingVerification only
//     through an admin decision
//   - any non-rejected status to SuspendedExpired when a current required
//     document is expired; out of it once none is, to PendingVerification
//     (Draft if requirements are missing), with review required again
func Derive(p *Profile, asOf time.Time, policy Policy) Derivation {
	r := &replay{
		policy:        policy,
		status:        StatusDraft,
		since:         p.CreatedAt,
		current:       make(map[docmodels.DocumentType]*docmodels.Document),
		verifications: make(map[string]*NPIVerification),
	}

	for _, ev := range collectEvents(p, asOf) {
		r.apply(ev)
		r.settle(ev.at)
	}
	r.settle(asOf)

	return Derivation{
		Status:   r.status,
		Since:    r.since,
		Blockers: r.blockers(asOf),
		Path:     r.path,
	}
}

func collectEvents(p *Profile, asOf time.Time) []event {
	var events []event
	add := func(ev event) {
		if !ev.at.After(asOf) {
			events = append(events, ev)
		}
	}
	for _, d := range p.Documents {
		add(event{at: d.UploadedAt, kind: evDocument, seq: d.Seq, doc: d})
		if d.ExpiresAt != nil {
			add(event{at: *d.ExpiresAt, kind: evExpiry, seq: d.Seq})
		}
	}
	for i := range p.NPISubmissions {
		s := &p.NPISubmissions[i]
		add(event{at: s.SubmittedAt, kind: evNPI, seq: s.Seq, npi: s})
	}
	for i := range p.Verifications {
		v := &p.Verifications[i]
		add(event{at: v.RecordedAt, kind: evVerification, seq: v.Seq, verify: v})
	}
	for i := range p.ExclusionChecks {
		c := &p.ExclusionChecks[i]
		add(event{at: c.RecordedAt, kind: evExclusion, seq: c.Seq, screen: c})
	}
	for i := range p.Decisions {
		d := &p.Decisions[i]
		add(event{at: d.DecidedAt, kind: evDecision, seq: d.Seq, decision: d})
	}

	slices.SortStableFunc(events, func(a, b event) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		if (a.kind == evExpiry) != (b.kind == evExpiry) {
			return cmp.Compare(a.kind, b.kind)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return events
}

func (r *replay) apply(ev event) {
	switch ev.kind {
	case evDocument:
		// Commit order decides which document is current, matching the
		// supersession pointers, even when an earlier-stamped request
		// committed last.
		if cur := r.current[ev.doc.Type]; cur == nil || ev.doc.Seq > cur.Seq {
			r.current[ev.doc.Type] = ev.doc
		}
		r.moreInfo = false
	case evNPI:
		if r.npi == nil || ev.npi.Seq > r.npi.Seq {
			r.npi = ev.npi
		}
		r.moreInfo = false
	case evVerification:
		if cur := r.verifications[ev.verify.Result.Candidate]; cur == nil || ev.verify.Seq > cur.Seq {
			r.verifications[ev.verify.Result.Candidate] = ev.verify
		}
	case evExclusion:
		if r.screening == nil || ev.screen.Seq > r.screening.Seq {
			r.screening = ev.screen
		}
	case evDecision:
		if r.status != StatusPendingReview {
			return
		}
		r.moveTo(ev.decision.Decision.Outcome(), ev.at)
		if ev.decision.Decision == DecisionRequestMoreInfo {
			r.moreInfo = true
		}
	}
}

// settle applies automatic transitions at instant at until none fires.
func (r *replay) settle(at time.Time) {
	for range 4 {
		next := r.next(at)
		if next == r.status {
			return
		}
		r.moveTo(next, at)
	}
}

func (r *replay) moveTo(to Status, at time.Time) {
	r.path = append(r.path, Transition{From: r.status, To: to, At: at})
	r.status = to
	r.since = at
}

func (r *replay) next(at time.Time) Status {
	if r.status == StatusRejected {
		return r.status
	}
	expired := len(r.expiredRequired(at)) > 0
	if expired && r.status != StatusSuspendedExpired {
		return StatusSuspendedExpired
	}

	switch r.status {
	case StatusSuspendedExpired:
		if expired {
			return r.status
		}
		if r.ready(at) {
			return StatusPendingVerification
		}
		return StatusDraft
	case StatusDraft:
		if r.ready(at) {
			return StatusPendingVerification
		}
	case StatusPendingVerification:
		if !r.moreInfo && r.verified() && r.screenedClear(at) {
			return StatusPendingReview
		}
	}
	return r.status
}

func (r *replay) ready(at time.Time) bool {
	return r.npi != nil && len(r.missingRequired()) == 0 && len(r.expiredRequired(at)) == 0
}

func (r *replay) verified() bool {
	v := r.verification()
	return v != nil && v.Result.Valid
}

func (r *replay) verification() *NPIVerification {
	if r.npi == nil {
		return nil
	}
	return r.verifications[r.npi.NPI]
}

// screening of the current name and number only; older screenings of a
// different submission do not count.
func (r *replay) currentScreening() *ExclusionCheck {
	if r.npi == nil || r.screening == nil {
		return nil
	}
	res := r.screening.Result
	if res.NPI != r.npi.NPI || exclusion.NormalizeName(res.Name) != exclusion.NormalizeName(r.npi.LegalName) {
		return nil
	}
	return r.screening
}

func (r *replay) screenedClear(at time.Time) bool {
	s := r.currentScreening()
	return s != nil && s.Result.Outcome == exclusion.OutcomeClear &&
		s.Result.FreshAt(at, r.policy.ExclusionFreshness)
}

func (r *replay) missingRequired() []docmodels.DocumentType {
	var out []docmodels.DocumentType
	for _, t := range r.policy.RequiredTypes {
		if _, ok := r.current[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

func (r *replay) expiredRequired(at time.Time) []docmodels.DocumentType {
	var out []docmodels.DocumentType
	for _, t := range r.policy.RequiredTypes {
		d, ok := r.current[t]
		if ok && d.ExpiresAt != nil && !at.Before(*d.ExpiresAt) {
			out = append(out, t)
		}
	}
	return out
}

func (r *replay) blockers(asOf time.Time) []Blocker {
	var out []Blocker
	switch r.status {
	case StatusDraft:
		for _, t := range r.missingRequired() {
			out = append(out, Blocker{Code: BlockerMissingDocument, Detail: string(t)})
		}
		if r.npi == nil {
			out = append(out, Blocker{Code: BlockerNPIMissing})
		}
	case StatusSuspendedExpired:
		for _, t := range r.expiredRequired(asOf) {
			out = append(out, Blocker{Code: BlockerExpiredDocument, Detail: string(t)})
		}
	case StatusPendingVerification:
		if r.moreInfo {
			out = append(out, Blocker{Code: BlockerMoreInfoRequested})
		}
		out = append(out, r.npiBlockers()...)
		out = append(out, r.screeningBlockers(asOf)...)
	case StatusPendingReview:
		out = append(out, Blocker{Code: BlockerAwaitingReview})
	}
	return out
}

func (r *replay) npiBlockers() []Blocker {
	v := r.verification()
	switch {
	case v == nil:
		return []Blocker{{Code: BlockerNPIUnverified}}
	case v.Result.Valid:
		return nil
	case v.Result.Reason == npi.ReasonDeactivated:
		return []Blocker{{Code: BlockerNPIDeactivated, Detail: v.Result.Candidate}}
	default:
		return []Blocker{{Code: BlockerNPINotFound, Detail: v.Result.Candidate}}
	}
}

func (r *replay) screeningBlockers(asOf time.Time) []Blocker {
	s := r.currentScreening()
	switch {
	case s == nil:
		return []Blocker{{Code: BlockerExclusionPending}}
	case s.Result.Outcome == exclusion.OutcomeMatch:
		return []Blocker{{Code: BlockerExclusionMatch, Detail: strings.Join(s.Result.EntryIDs(), ",")}}
	case s.Result.Outcome == exclusion.OutcomeIndeterminate:
		return []Blocker{{Code: BlockerExclusionIndeterminate}}
	case !s.Result.FreshAt(asOf, r.policy.ExclusionFreshness):
		return []Blocker{{Code: BlockerExclusionStale}}
	}
	return nil
}

// HasBlocker reports whether d carries a blocker with code.
func (d Derivation) HasBlocker(code string) bool {
	return slices.ContainsFunc(d.Blockers, func(b Blocker) bool { return b.Code == code })
}
