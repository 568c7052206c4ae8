package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"vetting/internal/credentialing/models"
	docmodels "vetting/internal/documents/models"
	id "vetting/pkg/domain"
	"vetting/pkg/platform/sentinel"
	txcontext "vetting/pkg/platform/tx"
)

// fact kinds stored in credentialing_facts.
const (
	kindNPISubmission = "npi_submission"
	kindVerification  = "npi_verification"
	kindExclusion     = "exclusion_check"
	kindDecision      = "decision"
	kindTransition    = "transition"
)

const uniqueViolation = "23505"

// Postgres persists profiles as append-only rows. Inside a ProviderTx it
// uses the transaction carried by the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

func (s *Postgres) FindByProviderID(ctx context.Context, providerID id.ProviderID) (*models.Profile, error) {
	q := s.execer(ctx)
	p := &models.Profile{ProviderID: providerID}
	err := q.QueryRowContext(ctx,
		`SELECT created_at, last_seq FROM credentialing_profiles WHERE provider_id = $1`,
		providerID.String(),
	).Scan(&p.CreatedAt, &p.LastSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	byID := map[id.ProviderID]*models.Profile{providerID: p}
	ids := pq.Array([]string{providerID.String()})
	if err := loadDocuments(ctx, q, ids, byID); err != nil {
		return nil, err
	}
	if err := loadFacts(ctx, q, ids, byID); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the staged facts in one transaction: the caller's, when the
// context carries one, or its own.
func (s *Postgres) Save(ctx context.Context, profile *models.Profile, changes models.Changes) error {
	return txcontext.Run(ctx, s.db, func(tx *sql.Tx) error {
		return save(ctx, tx, profile, changes)
	})
}

func save(ctx context.Context, tx *sql.Tx, p *models.Profile, c models.Changes) error {
	pid := p.ProviderID.String()
	if c.Created {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO credentialing_profiles (provider_id, created_at, last_seq) VALUES ($1, $2, $3)`,
			pid, p.CreatedAt, p.LastSeq,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("profile %s already exists: %w", pid, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert profile: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE credentialing_profiles SET last_seq = $2 WHERE provider_id = $1 AND last_seq <= $2`,
			pid, p.LastSeq,
		)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("profile %s is missing or ahead of this copy: %w", pid, sentinel.ErrConflict)
		}
	}

	// supersession first: the partial unique index allows one current
	// document per type at any moment
	for _, d := range c.Superseded {
		res, err := tx.ExecContext(ctx,
			`UPDATE credentialing_documents SET superseded_by = $2, superseded_at = $3
			 WHERE id = $1 AND superseded_by IS NULL`,
			d.ID.String(), d.SupersededBy.String(), d.SupersededAt,
		)
		if err != nil {
			return fmt.Errorf("supersede document: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("document %s already superseded: %w", d.ID, sentinel.ErrConflict)
		}
	}
	for _, d := range c.Documents {
		if err := insertDocument(ctx, tx, d); err != nil {
			return err
		}
	}

	for _, f := range c.NPISubmissions {
		if err := insertFact(ctx, tx, pid, f.Seq, kindNPISubmission, f, f.SubmittedAt); err != nil {
			return err
		}
	}
	for _, f := range c.Verifications {
		if err := insertFact(ctx, tx, pid, f.Seq, kindVerification, f, f.RecordedAt); err != nil {
			return err
		}
	}
	for _, f := range c.ExclusionChecks {
		if err := insertFact(ctx, tx, pid, f.Seq, kindExclusion, f, f.RecordedAt); err != nil {
			return err
		}
	}
	for _, f := range c.Decisions {
		if err := insertFact(ctx, tx, pid, f.Seq, kindDecision, f, f.DecidedAt); err != nil {
			return err
		}
	}
	for _, f := range c.Transitions {
		if err := insertFact(ctx, tx, pid, f.Seq, kindTransition, f, f.RecordedAt); err != nil {
			return err
		}
	}
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, d *docmodels.Document) error {
	var supersededBy *string
	if d.SupersededBy != nil {
		s := d.SupersededBy.String()
		supersededBy = &s
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credentialing_documents (
			id, provider_id, seq, doc_type, storage_ref, filename, content_type,
			size_bytes, sha256, expires_at, uploaded_at, superseded_by, superseded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID.String(), d.ProviderID.String(), d.Seq, string(d.Type), d.StorageRef, d.Filename,
		d.ContentType, d.SizeBytes, d.SHA256, d.ExpiresAt, d.UploadedAt, supersededBy, d.SupersededAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("document %s: %w", d.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func insertFact(ctx context.Context, tx *sql.Tx, pid string, seq int64, kind string, fact any, at time.Time) error {
	payload, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentialing_facts (provider_id, seq, kind, payload, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
		pid, seq, kind, payload, at,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s seq %d: %w", kind, seq, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	return nil
}

func (s *Postgres) ListProviderIDs(ctx context.Context) ([]id.ProviderID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT provider_id FROM credentialing_profiles ORDER BY provider_id::text`)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var out []id.ProviderID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan provider id: %w", err)
		}
		u, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse provider id: %w", err)
		}
		out = append(out, id.ProviderID(u))
	}
	return out, rows.Err()
}

// ListProfiles loads every profile with three queries.
func (s *Postgres) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	q := s.execer(ctx)
	rows, err := q.QueryContext(ctx,
		`SELECT provider_id, created_at, last_seq FROM credentialing_profiles ORDER BY provider_id::text`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var (
		out  []*models.Profile
		keys []string
		byID = map[id.ProviderID]*models.Profile{}
	)
	for rows.Next() {
		var (
			raw string
			p   models.Profile
		)
		if err := rows.Scan(&raw, &p.CreatedAt, &p.LastSeq); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		u, err := uuid.Parse(raw)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse provider id: %w", err)
		}
		p.ProviderID = id.ProviderID(u)
		out = append(out, &p)
		keys = append(keys, raw)
		byID[p.ProviderID] = &p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := pq.Array(keys)
	if err := loadDocuments(ctx, q, ids, byID); err != nil {
		return nil, err
	}
	if err := loadFacts(ctx, q, ids, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func loadDocuments(ctx context.Context, q txcontext.Executor, ids any, byID map[id.ProviderID]*models.Profile) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, provider_id, seq, doc_type, storage_ref, filename, content_type,
		       size_bytes, sha256, expires_at, uploaded_at, superseded_by, superseded_at
		FROM credentialing_documents
		WHERE provider_id = ANY($1::uuid[])
		ORDER BY provider_id, seq`, ids)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d                       docmodels.Document
			docID, pid, docType     string
			expiresAt, supersededAt sql.NullTime
			supersededBy            sql.NullString
		)
		if err := rows.Scan(&docID, &pid, &d.Seq, &docType, &d.StorageRef, &d.Filename, &d.ContentType,
			&d.SizeBytes, &d.SHA256, &expiresAt, &d.UploadedAt, &supersededBy, &supersededAt); err != nil {
			return fmt.Errorf("scan document: %w", err)
		}
		if d.ID, err = id.ParseDocumentID(docID); err != nil {
			return fmt.Errorf("parse document id: %w", err)
		}
		if d.ProviderID, err = id.ParseProviderID(pid); err != nil {
			return fmt.Errorf("parse provider id: %w", err)
		}
		d.Type = docmodels.DocumentType(docType)
		if expiresAt.Valid {
			t := expiresAt.Time.UTC()
			d.ExpiresAt = &t
		}
		if supersededBy.Valid {
			by, err := id.ParseDocumentID(supersededBy.String)
			if err != nil {
				return fmt.Errorf("parse superseded_by: %w", err)
			}
			d.SupersededBy = &by
		}
		if supersededAt.Valid {
			t := supersededAt.Time.UTC()
			d.SupersededAt = &t
		}
		if p, ok := byID[d.ProviderID]; ok {
			p.Documents = append(p.Documents, &d)
		}
	}
	return rows.Err()
}

func loadFacts(ctx context.Context, q txcontext.Executor, ids any, byID map[id.ProviderID]*models.Profile) error {
	rows, err := q.QueryContext(ctx, `
		SELECT provider_id, kind, payload
		FROM credentialing_facts
		WHERE provider_id = ANY($1::uuid[])
		ORDER BY provider_id, seq`, ids)
	if err != nil {
		return fmt.Errorf("load facts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			raw, kind string
			payload   []byte
		)
		if err := rows.Scan(&raw, &kind, &payload); err != nil {
			return fmt.Errorf("scan fact: %w", err)
		}
		pid, err := id.ParseProviderID(raw)
		if err != nil {
			return fmt.Errorf("parse provider id: %w", err)
		}
		p, ok := byID[pid]
		if !ok {
			continue
		}
		if err := appendFact(p, kind, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func appendFact(p *models.Profile, kind string, payload []byte) error {
	var err error
	switch kind {
	case kindNPISubmission:
		var f models.NPISubmission
		if err = json.Unmarshal(payload, &f); err == nil {
			p.NPISubmissions = append(p.NPISubmissions, f)
		}
	case kindVerification:
		var f models.NPIVerification
		if err = json.Unmarshal(payload, &f); err == nil {
			p.Verifications = append(p.Verifications, f)
		}
	case kindExclusion:
		var f models.ExclusionCheck
		if err = json.Unmarshal(payload, &f); err == nil {
			p.ExclusionChecks = append(p.ExclusionChecks, f)
		}
	case kindDecision:
		var f models.AdminDecision
		if err = json.Unmarshal(payload, &f); err == nil {
			p.Decisions = append(p.Decisions, f)
		}
	case kindTransition:
		var f models.Transition
		if err = json.Unmarshal(payload, &f); err == nil {
			p.Transitions = append(p.Transitions, f)
		}
	default:
		return fmt.Errorf("unknown fact kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
