package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/resilience"
)

// RecordStore persists extraction records. The envelope is stored as
// JSONB alongside indexed columns for the dedup hash and category.
type RecordStore struct {
	db       *sql.DB
	executor *resilience.Executor
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

// NewRecordStoreWithExecutor retries failed writes. Safe because the
// delete-then-insert protocol is idempotent: a retried write after a
// partial failure still converges to one record per hash.
func NewRecordStoreWithExecutor(db *sql.DB, executor *resilience.Executor) *RecordStore {
	return &RecordStore{db: db, executor: executor}
}

func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS extraction_records (
	id TEXT PRIMARY KEY,
	filing_id TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	category TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_records_content_hash ON extraction_records(content_hash);
CREATE INDEX IF NOT EXISTS idx_extraction_records_filing_id ON extraction_records(filing_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *RecordStore) GetByID(ctx context.Context, id string) (*domain.ExtractionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT data FROM extraction_records WHERE id = $1
`, id)
	return scanRecord(row)
}

func (s *RecordStore) FindByHash(ctx context.Context, contentHash string) ([]domain.ExtractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT data FROM extraction_records WHERE content_hash = $1 ORDER BY created_at
`, contentHash)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistenceFailure, "find records by hash", err)
	}
	defer rows.Close()

	var records []domain.ExtractionRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var record domain.ExtractionRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistenceFailure, "find records by hash", err)
	}
	return records, nil
}

// Replace is the dedup-then-write critical section. An advisory
// transaction lock on the content hash keeps two concurrent runs over
// identical bytes from interleaving into two surviving records; the
// delete clears every prior record for the hash, however many exist.
func (s *RecordStore) Replace(ctx context.Context, record *domain.ExtractionRecord) error {
	if err := record.Validate(); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "replace record", err)
	}
	if s.executor == nil {
		return s.replaceOnce(ctx, record)
	}
	return s.executor.Execute(ctx, "records.replace", func(ctx context.Context) error {
		return s.replaceOnce(ctx, record)
	}, classifyPersistenceError)
}

func (s *RecordStore) replaceOnce(ctx context.Context, record *domain.ExtractionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrPersistenceFailure, "begin replace tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1)::bigint)`, record.ContentHash); err != nil {
		return domain.WrapError(domain.ErrPersistenceFailure, "lock content hash", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM extraction_records WHERE content_hash = $1`, record.ContentHash); err != nil {
		return domain.WrapError(domain.ErrPersistenceFailure, "delete prior records", err)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO extraction_records (id, filing_id, content_hash, category, data, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		record.ID, record.FilingID, record.ContentHash, string(record.Category), data, record.CreatedAt,
	); err != nil {
		return domain.WrapError(domain.ErrPersistenceFailure, "insert record", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrPersistenceFailure, "commit replace tx", err)
	}
	return nil
}

func classifyPersistenceError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if domain.IsKind(err, domain.ErrPersistenceFailure) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func scanRecord(row *sql.Row) (*domain.ExtractionRecord, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get record", err)
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	var record domain.ExtractionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &record, nil
}
