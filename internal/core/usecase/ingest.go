package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/core/ports"
)

// IngestFilingUseCase is the trigger surface: it stores the uploaded
// document, records filing metadata and hands the filing id to the
// worker queue. Processing itself happens asynchronously.
type IngestFilingUseCase struct {
	repo    ports.FilingRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestFilingUseCase(
	repo ports.FilingRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestFilingUseCase {
	return &IngestFilingUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestFilingUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Filing, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	filing := &domain.Filing{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, filing); err != nil {
		return nil, fmt.Errorf("create filing metadata: %w", err)
	}

	if err := uc.queue.PublishFilingReceived(ctx, filing.ID); err != nil {
		return nil, fmt.Errorf("publish processing trigger: %w", err)
	}

	return filing, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "filing.bin"
	}
	return base
}
