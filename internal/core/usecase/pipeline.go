package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/core/ports"
)

// StageTimeouts bounds each collaborator call independently. Download
// and conversion work on raw documents and need minute-scale budgets;
// categorization and extraction operate on already-normalized text.
type StageTimeouts struct {
	Acquire    time.Duration
	Normalize  time.Duration
	Categorize time.Duration
	Extract    time.Duration
	Persist    time.Duration
}

func DefaultStageTimeouts() StageTimeouts {
	return StageTimeouts{
		Acquire:    60 * time.Second,
		Normalize:  120 * time.Second,
		Categorize: 30 * time.Second,
		Extract:    60 * time.Second,
		Persist:    10 * time.Second,
	}
}

// StageObserver receives per-stage outcomes for metrics. May be nil.
type StageObserver interface {
	ObserveStage(stage string, duration time.Duration, err error)
}

// ProcessFilingUseCase runs one filing through the fixed stage order:
// acquire, normalize, categorize, route/extract, persist. Stages pass
// immutable events forward; no stage re-invokes an earlier one.
type ProcessFilingUseCase struct {
	repo        ports.FilingRepository
	storage     ports.ObjectStorage
	converter   ports.DocumentConverter
	categorizer ports.FilingCategorizer
	extractor   ports.FieldExtractor
	store       ports.RecordStore

	rules       []domain.CategoryRule
	convertMode domain.ConvertMode
	timeouts    StageTimeouts
	observer    StageObserver
}

func NewProcessFilingUseCase(
	repo ports.FilingRepository,
	storage ports.ObjectStorage,
	converter ports.DocumentConverter,
	categorizer ports.FilingCategorizer,
	extractor ports.FieldExtractor,
	store ports.RecordStore,
	rules []domain.CategoryRule,
	convertMode domain.ConvertMode,
	timeouts StageTimeouts,
) *ProcessFilingUseCase {
	return &ProcessFilingUseCase{
		repo:        repo,
		storage:     storage,
		converter:   converter,
		categorizer: categorizer,
		extractor:   extractor,
		store:       store,
		rules:       rules,
		convertMode: convertMode,
		timeouts:    timeouts,
	}
}

// WithObserver attaches a stage metrics observer.
func (uc *ProcessFilingUseCase) WithObserver(observer StageObserver) *ProcessFilingUseCase {
	uc.observer = observer
	return uc
}

func (uc *ProcessFilingUseCase) ProcessByID(ctx context.Context, filingID string) (*domain.ExtractionRecord, error) {
	if err := uc.repo.UpdateStatus(ctx, filingID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	record, categorization, err := uc.runPipeline(ctx, filingID)
	if err != nil {
		if failErr := uc.markFailed(ctx, filingID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.SaveOutcome(ctx, filingID, categorization, record.ID); err != nil {
		if failErr := uc.markFailed(ctx, filingID, err); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}

	if err := uc.repo.UpdateStatus(ctx, filingID, domain.StatusReady, ""); err != nil {
		return nil, fmt.Errorf("set status=ready: %w", err)
	}

	return record, nil
}

func (uc *ProcessFilingUseCase) runPipeline(ctx context.Context, filingID string) (*domain.ExtractionRecord, domain.Categorization, error) {
	received := domain.ReceivedEvent{FilingID: filingID}
	if err := received.Validate(); err != nil {
		return nil, domain.Categorization{}, err
	}

	// Run-scoped scratch space for the downloaded bytes; released on
	// every exit path including cancellation.
	workDir, err := os.MkdirTemp("", "filing-run-")
	if err != nil {
		return nil, domain.Categorization{}, domain.WrapError(domain.ErrIOFailure, "create run dir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			slog.Warn("run_dir_cleanup_failed", "dir", workDir, "error", rmErr)
		}
	}()

	downloaded, err := uc.acquire(ctx, received, workDir)
	if err != nil {
		return nil, domain.Categorization{}, err
	}

	normalized, err := uc.normalize(ctx, downloaded)
	if err != nil {
		return nil, domain.Categorization{}, err
	}

	categorized, err := uc.categorize(ctx, normalized)
	if err != nil {
		return nil, domain.Categorization{}, err
	}

	extracted, err := uc.extract(ctx, categorized)
	if err != nil {
		return nil, domain.Categorization{}, err
	}

	if err := uc.persist(ctx, extracted); err != nil {
		return nil, domain.Categorization{}, err
	}

	categorization := domain.Categorization{
		Category:   extracted.Category,
		Confidence: extracted.Confidence,
	}
	return extracted.Record, categorization, nil
}

// acquire resolves the filing id to raw bytes and materializes them
// into the run directory.
func (uc *ProcessFilingUseCase) acquire(ctx context.Context, event domain.ReceivedEvent, workDir string) (domain.DownloadedEvent, error) {
	start := time.Now()
	out, err := uc.acquireInner(ctx, event, workDir)
	uc.observe("acquire", start, err)
	return out, err
}

func (uc *ProcessFilingUseCase) acquireInner(ctx context.Context, event domain.ReceivedEvent, workDir string) (domain.DownloadedEvent, error) {
	if err := event.Validate(); err != nil {
		return domain.DownloadedEvent{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeouts.Acquire)
	defer cancel()

	filing, err := uc.repo.GetByID(ctx, event.FilingID)
	if err != nil {
		return domain.DownloadedEvent{}, fmt.Errorf("resolve filing reference: %w", err)
	}

	reader, err := uc.storage.Open(ctx, filing.StoragePath)
	if err != nil {
		return domain.DownloadedEvent{}, fmt.Errorf("open stored document: %w", err)
	}
	defer reader.Close()

	localPath := filepath.Join(workDir, filepath.Base(filing.StoragePath))
	f, err := os.Create(localPath)
	if err != nil {
		return domain.DownloadedEvent{}, domain.WrapError(domain.ErrIOFailure, "materialize document", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return domain.DownloadedEvent{}, domain.WrapError(domain.ErrIOFailure, "materialize document", err)
	}

	next := domain.DownloadedEvent{
		FilingID:  event.FilingID,
		LocalPath: localPath,
		Filename:  filing.Filename,
	}
	if err := next.Validate(); err != nil {
		return domain.DownloadedEvent{}, err
	}
	slog.Info("filing_downloaded", "filing_id", next.FilingID, "path", next.LocalPath)
	return next, nil
}

// normalize delegates conversion to the document-understanding
// collaborator. An unreadable document is terminal for this run:
// retrying it would only re-spend conversion cost on the same bytes.
func (uc *ProcessFilingUseCase) normalize(ctx context.Context, event domain.DownloadedEvent) (domain.NormalizedEvent, error) {
	start := time.Now()
	out, err := uc.normalizeInner(ctx, event)
	uc.observe("normalize", start, err)
	return out, err
}

func (uc *ProcessFilingUseCase) normalizeInner(ctx context.Context, event domain.DownloadedEvent) (domain.NormalizedEvent, error) {
	if err := event.Validate(); err != nil {
		return domain.NormalizedEvent{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeouts.Normalize)
	defer cancel()

	text, err := uc.converter.Normalize(ctx, event.LocalPath, uc.convertMode)
	if err != nil {
		return domain.NormalizedEvent{}, fmt.Errorf("normalize document: %w", err)
	}
	if text == "" {
		return domain.NormalizedEvent{}, domain.WrapError(domain.ErrParseFailure, "normalize document", errors.New("converter returned empty text"))
	}

	next := domain.NormalizedEvent{
		FilingID:  event.FilingID,
		LocalPath: event.LocalPath,
		Filename:  event.Filename,
		Text:      text,
	}
	if err := next.Validate(); err != nil {
		return domain.NormalizedEvent{}, err
	}
	slog.Info("filing_normalized", "filing_id", next.FilingID, "text_chars", len(next.Text))
	return next, nil
}

// categorize assigns exactly one label. Confidence is carried forward
// untouched; a low-confidence best guess still proceeds to extraction.
func (uc *ProcessFilingUseCase) categorize(ctx context.Context, event domain.NormalizedEvent) (domain.CategorizedEvent, error) {
	start := time.Now()
	out, err := uc.categorizeInner(ctx, event)
	uc.observe("categorize", start, err)
	return out, err
}

func (uc *ProcessFilingUseCase) categorizeInner(ctx context.Context, event domain.NormalizedEvent) (domain.CategorizedEvent, error) {
	if err := event.Validate(); err != nil {
		return domain.CategorizedEvent{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeouts.Categorize)
	defer cancel()

	categorization, err := uc.categorizer.Classify(ctx, event.Text, uc.rules)
	if err != nil {
		return domain.CategorizedEvent{}, fmt.Errorf("categorize filing: %w", err)
	}

	next := domain.CategorizedEvent{
		FilingID:   event.FilingID,
		LocalPath:  event.LocalPath,
		Filename:   event.Filename,
		Text:       event.Text,
		Category:   categorization.Category,
		Confidence: categorization.Confidence,
	}
	if err := next.Validate(); err != nil {
		return domain.CategorizedEvent{}, err
	}
	slog.Info("filing_categorized",
		"filing_id", next.FilingID,
		"category", next.Category,
		"confidence", next.Confidence,
	)
	return next, nil
}

// extract selects the schema for the assigned category, reuses the
// normalized text from the previous stage, and composes the envelope
// record. The raw bytes are only re-read here to compute the content
// hash, never re-parsed.
func (uc *ProcessFilingUseCase) extract(ctx context.Context, event domain.CategorizedEvent) (domain.ExtractedEvent, error) {
	start := time.Now()
	out, err := uc.extractInner(ctx, event)
	uc.observe("extract", start, err)
	return out, err
}

func (uc *ProcessFilingUseCase) extractInner(ctx context.Context, event domain.CategorizedEvent) (domain.ExtractedEvent, error) {
	if err := event.Validate(); err != nil {
		return domain.ExtractedEvent{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeouts.Extract)
	defer cancel()

	schema, err := SchemaFor(event.Category)
	if err != nil {
		return domain.ExtractedEvent{}, domain.WrapError(domain.ErrClassificationFailure, "select extraction schema", err)
	}

	contentHash, err := domain.ContentHashFile(event.LocalPath)
	if err != nil {
		return domain.ExtractedEvent{}, domain.WrapError(domain.ErrIOFailure, "hash document", err)
	}

	raw, err := uc.extractor.Extract(ctx, event.Text, schema)
	if err != nil {
		return domain.ExtractedEvent{}, fmt.Errorf("extract fields: %w", err)
	}

	record, err := composeRecord(event, raw)
	if err != nil {
		return domain.ExtractedEvent{}, domain.WrapError(domain.ErrExtractionFailure, "compose record", err)
	}
	record.ID = uuid.NewString()
	record.ContentHash = contentHash
	record.CreatedAt = time.Now().UTC()

	next := domain.ExtractedEvent{
		FilingID:   event.FilingID,
		LocalPath:  event.LocalPath,
		Filename:   event.Filename,
		Text:       event.Text,
		Category:   event.Category,
		Confidence: event.Confidence,
		Record:     record,
	}
	if err := next.Validate(); err != nil {
		return domain.ExtractedEvent{}, err
	}
	slog.Info("filing_extracted", "filing_id", next.FilingID, "category", next.Category, "content_hash", contentHash)
	return next, nil
}

// persist runs the dedup-then-write protocol: any prior record for the
// same content hash is replaced, so reprocessing identical bytes never
// accumulates duplicates.
func (uc *ProcessFilingUseCase) persist(ctx context.Context, event domain.ExtractedEvent) error {
	start := time.Now()
	err := uc.persistInner(ctx, event)
	uc.observe("persist", start, err)
	return err
}

func (uc *ProcessFilingUseCase) persistInner(ctx context.Context, event domain.ExtractedEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeouts.Persist)
	defer cancel()

	if existing, err := uc.store.FindByHash(ctx, event.Record.ContentHash); err == nil && len(existing) > 0 {
		slog.Info("replacing_prior_records", "content_hash", event.Record.ContentHash, "count", len(existing))
	}

	if err := uc.store.Replace(ctx, event.Record); err != nil {
		return fmt.Errorf("persist extraction record: %w", err)
	}
	slog.Info("record_persisted", "record_id", event.Record.ID, "content_hash", event.Record.ContentHash)
	return nil
}

func (uc *ProcessFilingUseCase) markFailed(ctx context.Context, filingID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.repo.UpdateStatus(ctx, filingID, domain.StatusFailed, processErr.Error())
}

func (uc *ProcessFilingUseCase) observe(stage string, start time.Time, err error) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveStage(stage, time.Since(start), err)
}
