package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/edgarlab/filing-pipeline/internal/config"
	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

type pipelineRepoFake struct {
	filing   *domain.Filing
	statuses []domain.FilingStatus
	lastErr  string
	outcome  *domain.Categorization
	recordID string
}

func (f *pipelineRepoFake) Create(context.Context, *domain.Filing) error {
	return errors.New("not implemented")
}

func (f *pipelineRepoFake) GetByID(_ context.Context, id string) (*domain.Filing, error) {
	if f.filing == nil || f.filing.ID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get filing", errors.New("id="+id))
	}
	copyFiling := *f.filing
	return &copyFiling, nil
}

func (f *pipelineRepoFake) UpdateStatus(_ context.Context, _ string, status domain.FilingStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.lastErr = errMessage
	return nil
}

func (f *pipelineRepoFake) SaveOutcome(_ context.Context, _ string, categorization domain.Categorization, recordID string) error {
	f.outcome = &categorization
	f.recordID = recordID
	return nil
}

type pipelineStorageFake struct {
	content string
	err     error
}

func (f *pipelineStorageFake) Save(context.Context, string, io.Reader) error {
	return errors.New("not implemented")
}

func (f *pipelineStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

type converterFake struct {
	text string
	err  error
}

func (f *converterFake) Normalize(context.Context, string, domain.ConvertMode) (string, error) {
	return f.text, f.err
}

type categorizerFake struct {
	result domain.Categorization
	err    error
}

func (f *categorizerFake) Classify(context.Context, string, []domain.CategoryRule) (domain.Categorization, error) {
	return f.result, f.err
}

type extractorFake struct {
	raw   json.RawMessage
	err   error
	calls int
}

func (f *extractorFake) Extract(context.Context, string, domain.ExtractionSchema) (json.RawMessage, error) {
	f.calls++
	return f.raw, f.err
}

type recordStoreFake struct {
	existing []domain.ExtractionRecord
	replaced *domain.ExtractionRecord
	err      error
}

func (f *recordStoreFake) GetByID(context.Context, string) (*domain.ExtractionRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *recordStoreFake) FindByHash(context.Context, string) ([]domain.ExtractionRecord, error) {
	return f.existing, nil
}

func (f *recordStoreFake) Replace(_ context.Context, record *domain.ExtractionRecord) error {
	if f.err != nil {
		return f.err
	}
	copyRecord := *record
	f.replaced = &copyRecord
	return nil
}

func newPipelineUC(repo *pipelineRepoFake, storage *pipelineStorageFake, converter *converterFake, categorizer *categorizerFake, extractor *extractorFake, store *recordStoreFake) *ProcessFilingUseCase {
	return NewProcessFilingUseCase(
		repo, storage, converter, categorizer, extractor, store,
		config.DefaultCategoryRules(),
		domain.ConvertStandard,
		DefaultStageTimeouts(),
	)
}

func TestProcessByIDAnnualReportHappyPath(t *testing.T) {
	repo := &pipelineRepoFake{filing: &domain.Filing{
		ID:          "f-1",
		Filename:    "acme-10k.pdf",
		MimeType:    "application/pdf",
		StoragePath: "f-1_acme-10k.pdf",
		Status:      domain.StatusUploaded,
	}}
	storage := &pipelineStorageFake{content: "annual report body"}
	converter := &converterFake{text: "Acme Corp annual report. Total revenue was $10M."}
	categorizer := &categorizerFake{result: domain.Categorization{Category: domain.CategoryAnnualReport, Confidence: 0.92}}
	extractor := &extractorFake{raw: json.RawMessage(`{"total_revenue":"$10M","net_income":"$2M","total_assets":null,"total_liabilities":null}`)}
	store := &recordStoreFake{}

	uc := newPipelineUC(repo, storage, converter, categorizer, extractor, store)

	record, err := uc.ProcessByID(context.Background(), "f-1")
	if err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if record == nil || record.ID == "" {
		t.Fatalf("expected a persisted record with id")
	}
	if record.Category != domain.CategoryAnnualReport {
		t.Fatalf("expected category annual_report, got %s", record.Category)
	}
	if record.Annual == nil || record.Quarterly != nil || record.CurrentEvent != nil {
		t.Fatalf("expected only the annual slot populated")
	}
	if record.Annual.TotalRevenue == nil || *record.Annual.TotalRevenue != "$10M" {
		t.Fatalf("expected total_revenue $10M, got %v", record.Annual.TotalRevenue)
	}
	if record.Annual.TotalAssets != nil {
		t.Fatalf("expected null total_assets to stay nil")
	}
	wantHash := domain.ContentHash([]byte("annual report body"))
	if record.ContentHash != wantHash {
		t.Fatalf("expected content hash of raw bytes, got %s", record.ContentHash)
	}

	if store.replaced == nil {
		t.Fatalf("expected Replace call on record store")
	}
	if repo.outcome == nil || repo.outcome.Category != domain.CategoryAnnualReport || repo.outcome.Confidence != 0.92 {
		t.Fatalf("expected saved outcome with categorization, got %+v", repo.outcome)
	}
	if repo.recordID != record.ID {
		t.Fatalf("expected filing linked to record %s, got %s", record.ID, repo.recordID)
	}

	wantStatuses := []domain.FilingStatus{domain.StatusProcessing, domain.StatusReady}
	if len(repo.statuses) != len(wantStatuses) {
		t.Fatalf("expected statuses %v, got %v", wantStatuses, repo.statuses)
	}
	for i, s := range wantStatuses {
		if repo.statuses[i] != s {
			t.Fatalf("expected status %s at step %d, got %s", s, i, repo.statuses[i])
		}
	}
}

func TestProcessByIDCurrentEventReport(t *testing.T) {
	repo := &pipelineRepoFake{filing: &domain.Filing{
		ID:          "f-2",
		Filename:    "acme-8k.pdf",
		MimeType:    "application/pdf",
		StoragePath: "f-2_acme-8k.pdf",
		Status:      domain.StatusUploaded,
	}}
	storage := &pipelineStorageFake{content: "current report body"}
	converter := &converterFake{text: "Item 5.02 Departure of Directors."}
	categorizer := &categorizerFake{result: domain.Categorization{Category: domain.CategoryCurrentEventReport, Confidence: 0.81}}
	extractor := &extractorFake{raw: json.RawMessage(`{"events":[{"category":"Item 5.02","description":"CFO resigned"}]}`)}
	store := &recordStoreFake{}

	uc := newPipelineUC(repo, storage, converter, categorizer, extractor, store)

	record, err := uc.ProcessByID(context.Background(), "f-2")
	if err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if record.CurrentEvent == nil || len(record.CurrentEvent.Events) != 1 {
		t.Fatalf("expected one reported event, got %+v", record.CurrentEvent)
	}
	got := record.CurrentEvent.Events[0]
	if got.Category == nil || *got.Category != "Item 5.02" {
		t.Fatalf("expected event category Item 5.02, got %v", got.Category)
	}
}

func TestProcessByIDParseFailureIsTerminal(t *testing.T) {
	repo := &pipelineRepoFake{filing: &domain.Filing{
		ID:          "f-3",
		Filename:    "broken.pdf",
		MimeType:    "application/pdf",
		StoragePath: "f-3_broken.pdf",
		Status:      domain.StatusUploaded,
	}}
	storage := &pipelineStorageFake{content: "garbage"}
	converter := &converterFake{err: domain.WrapError(domain.ErrParseFailure, "parse document", errors.New("unreadable pdf"))}
	categorizer := &categorizerFake{}
	extractor := &extractorFake{}
	store := &recordStoreFake{}

	uc := newPipelineUC(repo, storage, converter, categorizer, extractor, store)

	_, err := uc.ProcessByID(context.Background(), "f-3")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrParseFailure) {
		t.Fatalf("expected parse failure kind, got %v", err)
	}
	if extractor.calls != 0 {
		t.Fatalf("expected no extraction after failed normalize")
	}
	if store.replaced != nil {
		t.Fatalf("expected no record write after failed normalize")
	}
	last := repo.statuses[len(repo.statuses)-1]
	if last != domain.StatusFailed {
		t.Fatalf("expected final status failed, got %s", last)
	}
	if repo.lastErr == "" {
		t.Fatalf("expected failure reason recorded on filing")
	}
}

func TestProcessByIDUnknownFilingFailsBeforeDownload(t *testing.T) {
	repo := &pipelineRepoFake{}
	storage := &pipelineStorageFake{content: "body"}
	uc := newPipelineUC(repo, storage, &converterFake{text: "x"}, &categorizerFake{}, &extractorFake{}, &recordStoreFake{})

	_, err := uc.ProcessByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found kind, got %v", err)
	}
}

func TestProcessByIDEmptyConverterTextIsParseFailure(t *testing.T) {
	repo := &pipelineRepoFake{filing: &domain.Filing{
		ID:          "f-4",
		Filename:    "empty.txt",
		MimeType:    "text/plain",
		StoragePath: "f-4_empty.txt",
		Status:      domain.StatusUploaded,
	}}
	storage := &pipelineStorageFake{content: "x"}
	uc := newPipelineUC(repo, storage, &converterFake{text: ""}, &categorizerFake{}, &extractorFake{}, &recordStoreFake{})

	_, err := uc.ProcessByID(context.Background(), "f-4")
	if !domain.IsKind(err, domain.ErrParseFailure) {
		t.Fatalf("expected parse failure for empty normalized text, got %v", err)
	}
}

func TestProcessByIDLowConfidenceStillProceeds(t *testing.T) {
	repo := &pipelineRepoFake{filing: &domain.Filing{
		ID:          "f-5",
		Filename:    "vague.txt",
		MimeType:    "text/plain",
		StoragePath: "f-5_vague.txt",
		Status:      domain.StatusUploaded,
	}}
	storage := &pipelineStorageFake{content: "vague body"}
	categorizer := &categorizerFake{result: domain.Categorization{Category: domain.CategoryQuarterlyReport, Confidence: 0.05}}
	extractor := &extractorFake{raw: json.RawMessage(`{}`)}
	store := &recordStoreFake{}

	uc := newPipelineUC(repo, storage, &converterFake{text: "some quarterly-ish text"}, categorizer, extractor, store)

	record, err := uc.ProcessByID(context.Background(), "f-5")
	if err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if record.Quarterly == nil {
		t.Fatalf("expected quarterly slot populated despite low confidence")
	}
	if record.Confidence != 0.05 {
		t.Fatalf("expected confidence carried through, got %v", record.Confidence)
	}
}

type stageLog struct {
	stages []string
}

func (l *stageLog) ObserveStage(stage string, _ time.Duration, _ error) {
	l.stages = append(l.stages, stage)
}

func TestProcessByIDReportsStagesInOrder(t *testing.T) {
	repo := &pipelineRepoFake{filing: &domain.Filing{
		ID:          "f-6",
		Filename:    "a.txt",
		MimeType:    "text/plain",
		StoragePath: "f-6_a.txt",
		Status:      domain.StatusUploaded,
	}}
	observer := &stageLog{}
	uc := newPipelineUC(
		repo,
		&pipelineStorageFake{content: "body"},
		&converterFake{text: "text"},
		&categorizerFake{result: domain.Categorization{Category: domain.CategoryAnnualReport, Confidence: 0.7}},
		&extractorFake{raw: json.RawMessage(`{}`)},
		&recordStoreFake{},
	).WithObserver(observer)

	if _, err := uc.ProcessByID(context.Background(), "f-6"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	want := []string{"acquire", "normalize", "categorize", "extract", "persist"}
	if len(observer.stages) != len(want) {
		t.Fatalf("expected stages %v, got %v", want, observer.stages)
	}
	for i, s := range want {
		if observer.stages[i] != s {
			t.Fatalf("expected stage %s at step %d, got %s", s, i, observer.stages[i])
		}
	}
}
