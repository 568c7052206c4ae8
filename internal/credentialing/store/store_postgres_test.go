package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetting/internal/credentialing/models"
	"vetting/internal/credentialing/service"
	docmodels "vetting/internal/documents/models"
	"vetting/internal/evidence/exclusion"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	"vetting/pkg/platform/sentinel"
	txcontext "vetting/pkg/platform/tx"
)

var (
	pgNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	selectProfile = regexp.QuoteMeta(`SELECT created_at, last_seq FROM credentialing_profiles WHERE provider_id = $1`)
	selectDocs    = `SELECT id, provider_id, seq, doc_type, (.+) FROM credentialing_documents`
	selectFacts   = `SELECT provider_id, kind, payload\s+FROM credentialing_facts`
	insertProfile = regexp.QuoteMeta(`INSERT INTO credentialing_profiles`)
	updateProfile = regexp.QuoteMeta(`UPDATE credentialing_profiles SET last_seq`)
	insertDoc     = regexp.QuoteMeta(`INSERT INTO credentialing_documents`)
	supersedeDoc  = regexp.QuoteMeta(`UPDATE credentialing_documents SET superseded_by`)
	insertFactSQL = regexp.QuoteMeta(`INSERT INTO credentialing_facts`)
)

var docColumns = []string{
	"id", "provider_id", "seq", "doc_type", "storage_ref", "filename", "content_type",
	"size_bytes", "sha256", "expires_at", "uploaded_at", "superseded_by", "superseded_at",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestPostgresFindByProviderID(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		mock.ExpectQuery(selectProfile).WithArgs(pid.String()).WillReturnError(sql.ErrNoRows)

		_, err := NewPostgres(db).FindByProviderID(ctx, pid)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rebuilds documents and facts in order", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		oldDoc, newDoc := id.NewDocumentID(), id.NewDocumentID()
		exp := pgNow.Add(400 * 24 * time.Hour)

		mock.ExpectQuery(selectProfile).WithArgs(pid.String()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "last_seq"}).AddRow(pgNow, int64(4)))
		mock.ExpectQuery(selectDocs).WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(docColumns).
				AddRow(oldDoc.String(), pid.String(), int64(1), "license", "ref-1", "old.pdf", "application/pdf",
					int64(10), "aa", exp, pgNow, newDoc.String(), pgNow.Add(time.Hour)).
				AddRow(newDoc.String(), pid.String(), int64(3), "license", "ref-2", "new.pdf", "application/pdf",
					int64(12), "bb", exp, pgNow.Add(time.Hour), nil, nil))
		mock.ExpectQuery(selectFacts).WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"provider_id", "kind", "payload"}).
				AddRow(pid.String(), kindNPISubmission, mustJSON(t, models.NPISubmission{
					Seq: 2, NPI: "1003000126", LegalName: "Jane Doe", SubmittedAt: pgNow,
				})).
				AddRow(pid.String(), kindExclusion, mustJSON(t, models.ExclusionCheck{
					Seq: 4, RecordedAt: pgNow, Result: exclusion.CheckResult{Outcome: exclusion.OutcomeClear, CheckedAt: pgNow},
				})))

		p, err := NewPostgres(db).FindByProviderID(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, int64(4), p.LastSeq)
		require.Len(t, p.Documents, 2)
		assert.False(t, p.Documents[0].IsCurrent())
		assert.Equal(t, newDoc, *p.Documents[0].SupersededBy)
		assert.True(t, p.Documents[1].IsCurrent())
		assert.Equal(t, exp, *p.Documents[1].ExpiresAt)
		require.Len(t, p.NPISubmissions, 1)
		assert.Equal(t, "1003000126", p.CurrentNPI().NPI)
		require.Len(t, p.ExclusionChecks, 1)
		assert.Equal(t, exclusion.OutcomeClear, p.ExclusionChecks[0].Result.Outcome)
		assert.True(t, p.TakeChanges().Empty())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown fact kind fails loudly", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		mock.ExpectQuery(selectProfile).WithArgs(pid.String()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "last_seq"}).AddRow(pgNow, int64(1)))
		mock.ExpectQuery(selectDocs).WillReturnRows(sqlmock.NewRows(docColumns))
		mock.ExpectQuery(selectFacts).
			WillReturnRows(sqlmock.NewRows([]string{"provider_id", "kind", "payload"}).
				AddRow(pid.String(), "mystery", []byte(`{}`)))

		_, err := NewPostgres(db).FindByProviderID(ctx, pid)
		assert.ErrorContains(t, err, "unknown fact kind")
	})
}

func TestPostgresSave(t *testing.T) {
	ctx := context.Background()

	t.Run("new profile in its own transaction", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		p := models.NewProfile(pid, pgNow)
		exp := pgNow.Add(24 * time.Hour)
		p.AddDocument(&docmodels.Document{ID: id.NewDocumentID(), ProviderID: pid, Type: docmodels.TypeLicense, ExpiresAt: &exp, UploadedAt: pgNow})
		p.AddNPISubmission("1003000126", "Jane Doe", pgNow)

		mock.ExpectBegin()
		mock.ExpectExec(insertProfile).WithArgs(pid.String(), pgNow, int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertDoc).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertFactSQL).
			WithArgs(pid.String(), int64(2), kindNPISubmission, sqlmock.AnyArg(), pgNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewPostgres(db).Save(ctx, p, p.TakeChanges()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("supersession is written before the replacement", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		p := &models.Profile{ProviderID: pid, CreatedAt: pgNow}
		exp := pgNow.Add(24 * time.Hour)
		old := &docmodels.Document{ID: id.NewDocumentID(), ProviderID: pid, Type: docmodels.TypeLicense, ExpiresAt: &exp, UploadedAt: pgNow}
		p.AddDocument(old)
		p.TakeChanges()
		next := &docmodels.Document{ID: id.NewDocumentID(), ProviderID: pid, Type: docmodels.TypeLicense, ExpiresAt: &exp, UploadedAt: pgNow.Add(time.Hour)}
		p.AddDocument(next)

		mock.ExpectBegin()
		mock.ExpectExec(updateProfile).WithArgs(pid.String(), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(supersedeDoc).
			WithArgs(old.ID.String(), next.ID.String(), pgNow.Add(time.Hour)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertDoc).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, NewPostgres(db).Save(ctx, p, p.TakeChanges()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate create is a conflict", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		p := models.NewProfile(pid, pgNow)
		p.AddNPISubmission("1003000126", "Jane Doe", pgNow)

		mock.ExpectBegin()
		mock.ExpectExec(insertProfile).WillReturnError(&pgconn.PgError{Code: uniqueViolation})
		mock.ExpectRollback()

		err := NewPostgres(db).Save(ctx, p, p.TakeChanges())
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale copy is a conflict", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		p := &models.Profile{ProviderID: pid, CreatedAt: pgNow, LastSeq: 1}
		p.AddNPISubmission("1003000126", "Jane Doe", pgNow)

		mock.ExpectBegin()
		mock.ExpectExec(updateProfile).WithArgs(pid.String(), int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := NewPostgres(db).Save(ctx, p, p.TakeChanges())
		assert.ErrorIs(t, err, sentinel.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("joins the transaction in context", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		p := &models.Profile{ProviderID: pid, CreatedAt: pgNow, LastSeq: 1}
		p.AddDecision(models.AdminDecision{ID: id.NewDecisionID(), ReviewerID: "r", Decision: models.DecisionApprove, DecidedAt: pgNow})

		mock.ExpectBegin()
		mock.ExpectExec(updateProfile).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insertFactSQL).
			WithArgs(pid.String(), int64(2), kindDecision, sqlmock.AnyArg(), pgNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, NewPostgres(db).Save(txcontext.WithTx(ctx, tx), p, p.TakeChanges()))
		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresListProviderIDs(t *testing.T) {
	db, mock := newMock(t)
	a, b := id.NewProviderID(), id.NewProviderID()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT provider_id FROM credentialing_profiles`)).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id"}).AddRow(a.String()).AddRow(b.String()))

	ids, err := NewPostgres(db).ListProviderIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []id.ProviderID{a, b}, ids)
}

func TestPostgresListProfiles(t *testing.T) {
	db, mock := newMock(t)
	a, b := id.NewProviderID(), id.NewProviderID()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT provider_id, created_at, last_seq FROM credentialing_profiles`)).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "created_at", "last_seq"}).
			AddRow(a.String(), pgNow, int64(1)).
			AddRow(b.String(), pgNow, int64(1)))
	mock.ExpectQuery(selectDocs).WithArgs(sqlmock.AnyArg()).WillReturnRows(sqlmock.NewRows(docColumns))
	mock.ExpectQuery(selectFacts).WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "kind", "payload"}).
			AddRow(b.String(), kindNPISubmission, mustJSON(t, models.NPISubmission{Seq: 1, NPI: "1003000126", LegalName: "B"})))

	profiles, err := NewPostgres(db).ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Nil(t, profiles[0].CurrentNPI())
	assert.Equal(t, "B", profiles[1].CurrentNPI().LegalName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTx(t *testing.T) {
	ctx := context.Background()
	lock := regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)

	t.Run("commits and exposes the transaction", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		mock.ExpectBegin()
		mock.ExpectExec(lock).WithArgs(lockKey(pid)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := NewPostgresTx(db, NewPostgres(db)).RunInTx(ctx, pid, func(ctx context.Context, s service.Store) error {
			_, ok := txcontext.From(ctx)
			assert.True(t, ok)
			assert.NotNil(t, s)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock := newMock(t)
		pid := id.NewProviderID()
		mock.ExpectBegin()
		mock.ExpectExec(lock).WithArgs(lockKey(pid)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := NewPostgresTx(db, NewPostgres(db)).RunInTx(ctx, pid, func(context.Context, service.Store) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled context never begins", func(t *testing.T) {
		db, mock := newMock(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := NewPostgresTx(db, NewPostgres(db)).RunInTx(cctx, id.NewProviderID(), func(context.Context, service.Store) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock keys differ per provider", func(t *testing.T) {
		a, b := id.NewProviderID(), id.NewProviderID()
		assert.NotEqual(t, lockKey(a), lockKey(b))
		assert.Equal(t, lockKey(a), lockKey(a))
	})
}
