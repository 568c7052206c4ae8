package models

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docmodels "vetting/internal/documents/models"
	"vetting/internal/evidence/exclusion"
	"vetting/internal/evidence/npi"
	id "vetting/pkg/domain"
)

const (
	day       = 24 * time.Hour
	validNPI  = "1003000126"
	otherNPI  = "1234567893"
	legalName = "Jane Q. Doe"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	p      *Profile
	policy Policy
}

func newFixture() *fixture {
	return &fixture{p: NewProfile(id.NewProviderID(), t0), policy: DefaultPolicy()}
}

func (f *fixture) doc(typ docmodels.DocumentType, at time.Time, validFor time.Duration) *docmodels.Document {
	exp := at.Add(validFor)
	d := &docmodels.Document{
		ID:         id.NewDocumentID(),
		ProviderID: f.p.ProviderID,
		Type:       typ,
		UploadedAt: at,
		ExpiresAt:  &exp,
	}
	f.p.AddDocument(d)
	return d
}

func (f *fixture) npi(number string, at time.Time) {
	f.p.AddNPISubmission(number, legalName, at)
}

func (f *fixture) verified(number string, at time.Time, reason string) {
	f.p.AddVerification(npi.VerificationResult{
		Candidate: number,
		Valid:     reason == "",
		Reason:    reason,
		FetchedAt: at,
	}, at)
}

func (f *fixture) screened(number string, outcome exclusion.Outcome, at time.Time) {
	res := exclusion.CheckResult{Outcome: outcome, CheckedAt: at, Name: legalName, NPI: number}
	if outcome == exclusion.OutcomeMatch {
		res.MatchedEntries = []exclusion.MatchedEntry{{Source: "oig", EntryID: "leie-7", On: "npi"}}
	}
	f.p.AddExclusionCheck(res, at)
}

func (f *fixture) decide(d Decision, at time.Time) {
	f.p.AddDecision(AdminDecision{ID: id.NewDecisionID(), ReviewerID: "rev-1", Decision: d, DecidedAt: at})
}

func (f *fixture) derive(at time.Time) Derivation {
	return Derive(f.p, at, f.policy)
}

// readyForReview builds a profile that reaches pending review at t0+2h.
func readyForReview() *fixture {
	f := newFixture()
	f.doc(docmodels.TypeLicense, t0, 400*day)
	f.doc(docmodels.TypeLiabilityInsurance, t0, 10*day)
	f.npi(validNPI, t0.Add(time.Hour))
	f.verified(validNPI, t0.Add(2*time.Hour), "")
	f.screened(validNPI, exclusion.OutcomeClear, t0.Add(2*time.Hour))
	return f
}

func TestDeriveEndToEnd(t *testing.T) {
	f := newFixture()
	f.doc(docmodels.TypeLicense, t0, 400*day)
	f.doc(docmodels.TypeLiabilityInsurance, t0, 10*day)
	assert.Equal(t, StatusDraft, f.derive(t0).Status)

	f.npi(validNPI, t0.Add(time.Hour))
	assert.Equal(t, StatusPendingVerification, f.derive(t0.Add(time.Hour)).Status)

	f.verified(validNPI, t0.Add(2*time.Hour), "")
	f.screened(validNPI, exclusion.OutcomeClear, t0.Add(2*time.Hour))
	d := f.derive(t0.Add(2 * time.Hour))
	assert.Equal(t, StatusPendingReview, d.Status)
	assert.Equal(t, t0.Add(2*time.Hour), d.Since)

	f.decide(DecisionApprove, t0.Add(3*time.Hour))
	assert.Equal(t, StatusApproved, f.derive(t0.Add(3*time.Hour)).Status)
	assert.Equal(t, StatusApproved, f.derive(t0.Add(10*day-time.Second)).Status)

	d = f.derive(t0.Add(10 * day))
	assert.Equal(t, StatusSuspendedExpired, d.Status)
	assert.Equal(t, t0.Add(10*day), d.Since)
	assert.Equal(t, []Blocker{{Code: BlockerExpiredDocument, Detail: "liability_insurance"}}, d.Blockers)

	// later reads never bring back a stale approval
	assert.Equal(t, StatusSuspendedExpired, f.derive(t0.Add(60*day)).Status)

	var tos []Status
	for _, tr := range d.Path {
		tos = append(tos, tr.To)
	}
	assert.Equal(t, []Status{StatusPendingVerification, StatusPendingReview, StatusApproved, StatusSuspendedExpired}, tos)
}

func TestDeriveDraftBlockers(t *testing.T) {
	f := newFixture()
	f.doc(docmodels.TypeLicense, t0, 400*day)

	d := f.derive(t0.Add(time.Minute))
	assert.Equal(t, StatusDraft, d.Status)
	assert.Equal(t, t0, d.Since)
	assert.Equal(t, []Blocker{
		{Code: BlockerMissingDocument, Detail: "liability_insurance"},
		{Code: BlockerNPIMissing},
	}, d.Blockers)
}

func TestDeriveIgnoresFactsAfterAsOf(t *testing.T) {
	f := readyForReview()
	assert.Equal(t, StatusDraft, f.derive(t0.Add(30*time.Minute)).Status)
	assert.Equal(t, StatusPendingReview, f.derive(t0.Add(2*time.Hour)).Status)
}

func TestDeriveVerificationBlocks(t *testing.T) {
	base := func() *fixture {
		f := newFixture()
		f.doc(docmodels.TypeLicense, t0, 400*day)
		f.doc(docmodels.TypeLiabilityInsurance, t0, 400*day)
		f.npi(validNPI, t0)
		return f
	}
	at := t0.Add(time.Hour)

	t.Run("indeterminate screening blocks without rejecting", func(t *testing.T) {
		f := base()
		f.verified(validNPI, at, "")
		f.screened(validNPI, exclusion.OutcomeIndeterminate, at)
		d := f.derive(at)
		assert.Equal(t, StatusPendingVerification, d.Status)
		assert.True(t, d.HasBlocker(BlockerExclusionIndeterminate))

		f.screened(validNPI, exclusion.OutcomeClear, at.Add(time.Hour))
		assert.Equal(t, StatusPendingReview, f.derive(at.Add(time.Hour)).Status)
	})

	t.Run("match keeps the profile in verification", func(t *testing.T) {
		f := base()
		f.verified(validNPI, at, "")
		f.screened(validNPI, exclusion.OutcomeMatch, at)
		d := f.derive(at)
		assert.Equal(t, StatusPendingVerification, d.Status)
		assert.Contains(t, d.Blockers, Blocker{Code: BlockerExclusionMatch, Detail: "oig:leie-7"})
	})

	t.Run("npi not found", func(t *testing.T) {
		f := base()
		f.verified(validNPI, at, npi.ReasonNotFound)
		f.screened(validNPI, exclusion.OutcomeClear, at)
		d := f.derive(at)
		assert.Equal(t, StatusPendingVerification, d.Status)
		assert.Equal(t, []Blocker{{Code: BlockerNPINotFound, Detail: validNPI}}, d.Blockers)
	})

	t.Run("deactivated npi", func(t *testing.T) {
		f := base()
		f.verified(validNPI, at, npi.ReasonDeactivated)
		f.screened(validNPI, exclusion.OutcomeClear, at)
		assert.True(t, f.derive(at).HasBlocker(BlockerNPIDeactivated))
	})

	t.Run("stale screening does not promote", func(t *testing.T) {
		f := base()
		f.screened(validNPI, exclusion.OutcomeClear, at)
		f.verified(validNPI, at.Add(31*day), "")
		d := f.derive(at.Add(31 * day))
		assert.Equal(t, StatusPendingVerification, d.Status)
		assert.True(t, d.HasBlocker(BlockerExclusionStale))
	})

	t.Run("new number needs its own verification", func(t *testing.T) {
		f := base()
		f.verified(validNPI, at, "")
		f.screened(validNPI, exclusion.OutcomeClear, at)
		f.npi(otherNPI, at.Add(-time.Minute))
		d := f.derive(at.Add(time.Hour))
		assert.Equal(t, StatusPendingVerification, d.Status)
		assert.True(t, d.HasBlocker(BlockerNPIUnverified))
		assert.True(t, d.HasBlocker(BlockerExclusionPending))
	})
}

func TestDeriveDecisionsOnlyApplyInReview(t *testing.T) {
	f := newFixture()
	f.decide(DecisionApprove, t0.Add(time.Minute))
	assert.Equal(t, StatusDraft, f.derive(t0.Add(time.Hour)).Status)

	f.doc(docmodels.TypeLicense, t0.Add(2*time.Minute), 400*day)
	f.doc(docmodels.TypeLiabilityInsurance, t0.Add(2*time.Minute), 400*day)
	f.npi(validNPI, t0.Add(3*time.Minute))
	f.decide(DecisionApprove, t0.Add(4*time.Minute))
	assert.Equal(t, StatusPendingVerification, f.derive(t0.Add(time.Hour)).Status)
}

func TestDeriveRequestMoreInfo(t *testing.T) {
	f := readyForReview()
	f.decide(DecisionRequestMoreInfo, t0.Add(3*time.Hour))

	d := f.derive(t0.Add(4 * time.Hour))
	assert.Equal(t, StatusPendingVerification, d.Status)
	assert.Equal(t, []Blocker{{Code: BlockerMoreInfoRequested}}, d.Blockers)

	f.doc(docmodels.TypeBoardCertification, t0.Add(5*time.Hour), 700*day)
	d = f.derive(t0.Add(5 * time.Hour))
	assert.Equal(t, StatusPendingReview, d.Status)
	assert.Equal(t, t0.Add(5*time.Hour), d.Since)
}

func TestDeriveRejectedIsTerminal(t *testing.T) {
	f := readyForReview()
	f.decide(DecisionReject, t0.Add(3*time.Hour))
	f.doc(docmodels.TypeLicense, t0.Add(4*time.Hour), 500*day)
	f.decide(DecisionApprove, t0.Add(5*time.Hour))

	assert.Equal(t, StatusRejected, f.derive(t0.Add(5*time.Hour)).Status)
	assert.Equal(t, StatusRejected, f.derive(t0.Add(90*day)).Status)
	assert.Empty(t, f.derive(t0.Add(90*day)).Blockers)
}

func TestDeriveRecoversFromSuspensionThroughReview(t *testing.T) {
	f := readyForReview()
	f.decide(DecisionApprove, t0.Add(3*time.Hour))
	require.Equal(t, StatusSuspendedExpired, f.derive(t0.Add(11*day)).Status)

	f.doc(docmodels.TypeLiabilityInsurance, t0.Add(12*day), 365*day)
	d := f.derive(t0.Add(12 * day))
	// screening from t0 is still fresh, so the profile goes straight back to review
	assert.Equal(t, StatusPendingReview, d.Status)
	last := d.Path[len(d.Path)-2:]
	assert.Equal(t, StatusSuspendedExpired, last[0].From)
	assert.Equal(t, StatusPendingVerification, last[0].To)
	assert.Equal(t, StatusPendingReview, last[1].To)

	f.decide(DecisionApprove, t0.Add(13*day))
	assert.Equal(t, StatusApproved, f.derive(t0.Add(13*day)).Status)
}

func TestDeriveSuspensionWithStaleScreeningNeedsRecheck(t *testing.T) {
	f := readyForReview()
	f.decide(DecisionApprove, t0.Add(3*time.Hour))
	f.doc(docmodels.TypeLiabilityInsurance, t0.Add(40*day), 365*day)

	d := f.derive(t0.Add(40 * day))
	assert.Equal(t, StatusPendingVerification, d.Status)
	assert.True(t, d.HasBlocker(BlockerExclusionStale))
}

func TestDeriveSupersededDocumentDoesNotSuspend(t *testing.T) {
	f := readyForReview()
	f.doc(docmodels.TypeLiabilityInsurance, t0.Add(5*day), 365*day)
	f.decide(DecisionApprove, t0.Add(6*day))

	assert.Equal(t, StatusApproved, f.derive(t0.Add(20*day)).Status)
}

func TestDeriveCurrentDocumentFollowsCommitOrder(t *testing.T) {
	f := newFixture()
	f.doc(docmodels.TypeLicense, t0, 400*day)
	short := f.doc(docmodels.TypeLiabilityInsurance, t0.Add(2*time.Hour), day)
	long := f.doc(docmodels.TypeLiabilityInsurance, t0.Add(time.Hour), 400*day)
	require.Equal(t, long.ID, *short.SupersededBy)

	d := f.derive(t0.Add(3 * day))
	assert.NotEqual(t, StatusSuspendedExpired, d.Status)
	assert.False(t, d.HasBlocker(BlockerExpiredDocument))
	assert.False(t, d.HasBlocker(BlockerMissingDocument))
}

func TestDeriveOptionalTypeExpiryDoesNotSuspend(t *testing.T) {
	f := readyForReview()
	f.doc(docmodels.TypeBoardCertification, t0, 3*day)
	f.decide(DecisionApprove, t0.Add(3*time.Hour))

	assert.Equal(t, StatusApproved, f.derive(t0.Add(5*day)).Status)
}

func TestDeriveExpiredUploadSuspendsImmediately(t *testing.T) {
	f := newFixture()
	f.doc(docmodels.TypeLicense, t0, -day)
	d := f.derive(t0)
	assert.Equal(t, StatusSuspendedExpired, d.Status)

	f.doc(docmodels.TypeLicense, t0.Add(time.Hour), 365*day)
	assert.Equal(t, StatusDraft, f.derive(t0.Add(time.Hour)).Status)
}

// Random fact sequences never produce a transition that skips review.
func TestDeriveNeverSkipsReview(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	types := []docmodels.DocumentType{docmodels.TypeLicense, docmodels.TypeLiabilityInsurance, docmodels.TypeBoardCertification}
	outcomes := []exclusion.Outcome{exclusion.OutcomeClear, exclusion.OutcomeMatch, exclusion.OutcomeIndeterminate}
	decisions := []Decision{DecisionApprove, DecisionReject, DecisionRequestMoreInfo}
	numbers := []string{validNPI, otherNPI}

	for run := 0; run < 300; run++ {
		f := newFixture()
		at := t0
		for step := 0; step < 25; step++ {
			at = at.Add(time.Duration(rng.IntN(72)+1) * time.Hour)
			number := numbers[rng.IntN(len(numbers))]
			switch rng.IntN(5) {
			case 0:
				f.doc(types[rng.IntN(len(types))], at, time.Duration(rng.IntN(40)-5)*day)
			case 1:
				f.npi(number, at)
			case 2:
				reason := ""
				if rng.IntN(4) == 0 {
					reason = npi.ReasonNotFound
				}
				f.verified(number, at, reason)
			case 3:
				f.screened(number, outcomes[rng.IntN(len(outcomes))], at)
			case 4:
				f.decide(decisions[rng.IntN(len(decisions))], at)
			}
		}

		d := f.derive(at.Add(time.Duration(rng.IntN(30)) * day))
		prev := StatusDraft
		for _, tr := range d.Path {
			require.Equal(t, prev, tr.From, "run %d: path is not contiguous", run)
			switch tr.To {
			case StatusApproved, StatusRejected:
				require.Equal(t, StatusPendingReview, tr.From, "run %d", run)
			case StatusPendingReview:
				require.Equal(t, StatusPendingVerification, tr.From, "run %d", run)
			}
			require.NotEqual(t, StatusRejected, tr.From, "run %d: left rejected", run)
			prev = tr.To
		}
		require.Equal(t, prev, d.Status)
	}
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("Request-More-Info")
	require.NoError(t, err)
	assert.Equal(t, DecisionRequestMoreInfo, d)

	_, err = ParseDecision("maybe")
	assert.ErrorIs(t, err, ErrUnknownDecision)
}

func TestDecisionRequiresReason(t *testing.T) {
	assert.False(t, DecisionApprove.RequiresReason())
	assert.True(t, DecisionReject.RequiresReason())
	assert.True(t, DecisionRequestMoreInfo.RequiresReason())
}

func TestProfileStagesChanges(t *testing.T) {
	f := newFixture()
	first := f.doc(docmodels.TypeLicense, t0, 400*day)
	second := f.doc(docmodels.TypeLicense, t0.Add(time.Hour), 400*day)

	c := f.p.TakeChanges()
	assert.True(t, c.Created)
	assert.Len(t, c.Documents, 2)
	assert.Equal(t, []*docmodels.Document{first}, c.Superseded)
	assert.Equal(t, second.ID, *first.SupersededBy)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	assert.True(t, f.p.TakeChanges().Empty())
	assert.Len(t, f.p.CurrentDocuments(), 1)
}
