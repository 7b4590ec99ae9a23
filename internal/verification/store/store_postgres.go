package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"storefront/internal/kyc/models"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
	txcontext "storefront/pkg/platform/tx"
)

// Schema is applied by postgres.Migrate at authority startup.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS kyc_types (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		required_documents TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS kyc_submissions (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		kyc_type TEXT NOT NULL,
		status TEXT NOT NULL,
		fields JSONB NOT NULL DEFAULT '{}',
		documents JSONB NOT NULL DEFAULT '[]',
		admin_notes TEXT,
		reviewer TEXT,
		reviewed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS kyc_submissions_owner_created_idx
		ON kyc_submissions (owner, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS kyc_submissions_holding_variant_idx
		ON kyc_submissions (owner, kyc_type) WHERE status <> 'rejected'`,
}

const uniqueViolation = "23505"

// holdingStatuses are the statuses that keep a variant held by its owner.
var holdingStatuses = []string{
	string(models.StatusPending),
	string(models.StatusUnderReview),
	string(models.StatusApproved),
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists the catalog and submissions in PostgreSQL.
type PostgresStore struct {
	db querier
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// q prefers a transaction carried on ctx over the store's own handle.
func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) ListTypes(ctx context.Context) (models.Catalog, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT key, name, icon, color, description, required_documents FROM kyc_types ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list kyc types: %w", err)
	}
	defer rows.Close()

	catalog := models.Catalog{}
	for rows.Next() {
		var t models.VerificationType
		var docs []string
		if err := rows.Scan(&t.Key, &t.Name, &t.Icon, &t.Color, &t.Description, pq.Array(&docs)); err != nil {
			return nil, fmt.Errorf("scan kyc type: %w", err)
		}
		t.RequiredDocuments = docs
		catalog[t.Key] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list kyc types: %w", err)
	}
	return catalog.Normalize(), nil
}

// SeedTypes upserts every entry of catalog in one transaction.
func (s *PostgresStore) SeedTypes(ctx context.Context, catalog models.Catalog) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return s.seed(ctx, catalog)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := s.seed(txcontext.WithTx(ctx, tx), catalog); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) seed(ctx context.Context, catalog models.Catalog) error {
	for _, key := range catalog.Keys() {
		t := catalog[key]
		_, err := s.q(ctx).ExecContext(ctx, `
			INSERT INTO kyc_types (key, name, icon, color, description, required_documents)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (key) DO UPDATE SET
				name = EXCLUDED.name,
				icon = EXCLUDED.icon,
				color = EXCLUDED.color,
				description = EXCLUDED.description,
				required_documents = EXCLUDED.required_documents`,
			key, t.Name, t.Icon, t.Color, t.Description, pq.Array(t.RequiredDocuments))
		if err != nil {
			return fmt.Errorf("seed kyc type %s: %w", key, err)
		}
	}
	return nil
}

const submissionColumns = `id, owner, kyc_type, status, fields, documents, admin_notes, reviewer, reviewed_at, created_at, updated_at`

func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]models.Submission, error) {
	return s.list(ctx, `SELECT `+submissionColumns+` FROM kyc_submissions
		WHERE owner = $1 ORDER BY created_at DESC, id DESC`, owner)
}

func (s *PostgresStore) ActiveForVariant(ctx context.Context, owner, variant string) ([]models.Submission, error) {
	return s.list(ctx, `SELECT `+submissionColumns+` FROM kyc_submissions
		WHERE owner = $1 AND kyc_type = $2 AND status = ANY($3)
		ORDER BY created_at DESC, id DESC`, owner, variant, pq.Array(holdingStatuses))
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Submission, error) {
	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM kyc_submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) Save(ctx context.Context, sub *models.Submission) error {
	if sub == nil {
		return dErrors.New(dErrors.CodeInternal, "submission is required")
	}
	fields, err := json.Marshal(nonNilFields(sub.Fields))
	if err != nil {
		return fmt.Errorf("marshal submission fields: %w", err)
	}
	docs := sub.Documents
	if docs == nil {
		docs = []models.Document{}
	}
	documents, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal submission documents: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO kyc_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			fields = EXCLUDED.fields,
			documents = EXCLUDED.documents,
			admin_notes = EXCLUDED.admin_notes,
			reviewer = EXCLUDED.reviewer,
			reviewed_at = EXCLUDED.reviewed_at,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.Owner, sub.Variant, string(sub.Status), string(fields), string(documents),
		nullString(sub.AdminNotes), nullString(sub.Reviewer), nullTime(sub.ReviewedAt),
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM kyc_submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]models.Submission, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		sub        models.Submission
		status     string
		fields     []byte
		documents  []byte
		adminNotes sql.NullString
		reviewer   sql.NullString
		reviewedAt sql.NullTime
	)
	err := row.Scan(&sub.ID, &sub.Owner, &sub.Variant, &status, &fields, &documents,
		&adminNotes, &reviewer, &reviewedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Status = models.Status(status)
	if err := json.Unmarshal(fields, &sub.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if err := json.Unmarshal(documents, &sub.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	sub.Fields = nonNilFields(sub.Fields)
	if sub.Documents == nil {
		sub.Documents = []models.Document{}
	}
	if adminNotes.Valid {
		sub.AdminNotes = &adminNotes.String
	}
	if reviewer.Valid {
		sub.Reviewer = &reviewer.String
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		sub.ReviewedAt = &at
	}
	return &sub, nil
}

func nonNilFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// PostgresTx runs a unit of work inside one database transaction.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
