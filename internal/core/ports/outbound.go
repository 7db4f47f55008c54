package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

// FilingRepository persists and reads filing state.
type FilingRepository interface {
	Create(ctx context.Context, filing *domain.Filing) error
	GetByID(ctx context.Context, id string) (*domain.Filing, error)
	UpdateStatus(ctx context.Context, id string, status domain.FilingStatus, errMessage string) error
	SaveOutcome(ctx context.Context, id string, categorization domain.Categorization, recordID string) error
}

// ObjectStorage stores source filing documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes filing processing triggers.
type MessageQueue interface {
	PublishFilingReceived(ctx context.Context, filingID string) error
	SubscribeFilingReceived(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentConverter turns a downloaded document into one normalized
// text representation (flowing text plus table markup).
type DocumentConverter interface {
	Normalize(ctx context.Context, path string, mode domain.ConvertMode) (string, error)
}

// FilingCategorizer assigns exactly one category label plus a
// confidence score, guided by caller-supplied natural-language rules.
type FilingCategorizer interface {
	Classify(ctx context.Context, text string, rules []domain.CategoryRule) (domain.Categorization, error)
}

// FieldExtractor runs one extraction schema against normalized text.
// It is best-effort: unfound fields come back null, never as errors.
type FieldExtractor interface {
	Extract(ctx context.Context, text string, schema domain.ExtractionSchema) (json.RawMessage, error)
}

// RecordStore is the durable home of extraction records, keyed for
// dedup by content hash.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*domain.ExtractionRecord, error)
	FindByHash(ctx context.Context, contentHash string) ([]domain.ExtractionRecord, error)
	// Replace atomically clears every record sharing the new record's
	// content hash and inserts the new one, so reprocessing the same
	// bytes converges to a single stored record.
	Replace(ctx context.Context, record *domain.ExtractionRecord) error
}
