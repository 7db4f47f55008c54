package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/resilience"
)

func newStoreWithMock(t *testing.T) (*RecordStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewRecordStore(db), mock, func() { _ = db.Close() }
}

func storedAnnualRecord() *domain.ExtractionRecord {
	revenue := "$10M"
	return &domain.ExtractionRecord{
		ID:          "r-1",
		FilingID:    "f-1",
		Filename:    "acme-10k.pdf",
		ContentHash: domain.ContentHash([]byte("raw")),
		Category:    domain.CategoryAnnualReport,
		Confidence:  0.92,
		Annual:      &domain.AnnualReportData{TotalRevenue: &revenue},
		CreatedAt:   time.Now().UTC(),
	}
}

func expectReplaceTx(mock sqlmock.Sqlmock, record *domain.ExtractionRecord) {
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(record.ContentHash).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM extraction_records").
		WithArgs(record.ContentHash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO extraction_records").
		WithArgs(record.ID, record.FilingID, record.ContentHash, string(record.Category), sqlmock.AnyArg(), record.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestReplaceDeletesPriorRecordsForHash(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	record := storedAnnualRecord()
	expectReplaceTx(mock, record)

	if err := store.Replace(context.Background(), record); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceIsIdempotentAcrossRuns(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	record := storedAnnualRecord()
	expectReplaceTx(mock, record)
	expectReplaceTx(mock, record)

	if err := store.Replace(context.Background(), record); err != nil {
		t.Fatalf("first Replace() error = %v", err)
	}
	if err := store.Replace(context.Background(), record); err != nil {
		t.Fatalf("second Replace() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceRejectsInvalidRecordWithoutTouchingDB(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	record := storedAnnualRecord()
	record.Annual = nil

	err := store.Replace(context.Background(), record)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceRollsBackOnInsertFailure(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	record := storedAnnualRecord()
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(record.ContentHash).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM extraction_records").
		WithArgs(record.ContentHash).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO extraction_records").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Replace(context.Background(), record)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrPersistenceFailure) {
		t.Fatalf("expected persistence failure kind, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceRetriesTransientFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
	})
	store := NewRecordStoreWithExecutor(db, executor)

	record := storedAnnualRecord()

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))
	expectReplaceTx(mock, record)

	if err := store.Replace(context.Background(), record); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDRecordNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT data FROM extraction_records WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindByHashUnmarshalsEnvelope(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	record := storedAnnualRecord()
	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	mock.ExpectQuery("SELECT data FROM extraction_records WHERE content_hash").
		WithArgs(record.ContentHash).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(data))

	records, err := store.FindByHash(context.Background(), record.ContentHash)
	if err != nil {
		t.Fatalf("FindByHash() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.ID != record.ID || got.Category != domain.CategoryAnnualReport {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Annual == nil || got.Annual.TotalRevenue == nil || *got.Annual.TotalRevenue != "$10M" {
		t.Fatalf("expected annual slot restored from JSONB, got %+v", got.Annual)
	}
}
