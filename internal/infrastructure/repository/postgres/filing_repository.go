package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

type FilingRepository struct {
	db *sql.DB
}

func NewFilingRepository(db *sql.DB) *FilingRepository {
	return &FilingRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FilingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS filings (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	category TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	record_id TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_filings_status ON filings(status);
CREATE INDEX IF NOT EXISTS idx_filings_created_at ON filings(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *FilingRepository) Create(ctx context.Context, filing *domain.Filing) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO filings (
	id, filename, mime_type, storage_path, category, confidence, record_id, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		filing.ID, filing.Filename, filing.MimeType, filing.StoragePath, filing.Category,
		filing.Confidence, filing.RecordID, string(filing.Status), filing.Error, filing.CreatedAt, filing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert filing: %w", err)
	}
	return nil
}

func (r *FilingRepository) GetByID(ctx context.Context, id string) (*domain.Filing, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, category, confidence, record_id, status, error_message, created_at, updated_at
FROM filings
WHERE id = $1
`, id)

	var filing domain.Filing
	var status string

	err := row.Scan(
		&filing.ID, &filing.Filename, &filing.MimeType, &filing.StoragePath, &filing.Category,
		&filing.Confidence, &filing.RecordID, &status, &filing.Error, &filing.CreatedAt, &filing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get filing", err)
		}
		return nil, fmt.Errorf("scan filing: %w", err)
	}

	filing.Status = domain.FilingStatus(status)
	return &filing, nil
}

func (r *FilingRepository) UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE filings
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update filing status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "update filing status", fmt.Errorf("no filing with id %s", id))
	}
	return nil
}

func (r *FilingRepository) SaveOutcome(ctx context.Context, id string, categorization domain.Categorization, recordID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE filings
SET category = $2, confidence = $3, record_id = $4, updated_at = $5
WHERE id = $1
`, id, string(categorization.Category), categorization.Confidence, recordID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save filing outcome: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "save filing outcome", fmt.Errorf("no filing with id %s", id))
	}
	return nil
}
