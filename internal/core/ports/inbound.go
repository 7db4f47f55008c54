package ports

import (
	"context"
	"io"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

// FilingIngestor is the inbound contract for filing upload orchestration.
type FilingIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Filing, error)
}

// FilingProcessor is the inbound contract for running the pipeline on
// one ingested filing.
type FilingProcessor interface {
	ProcessByID(ctx context.Context, filingID string) (*domain.ExtractionRecord, error)
}

// FilingReader is the inbound read model for filing metadata/state.
type FilingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Filing, error)
}
