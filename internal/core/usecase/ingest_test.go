package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/edgarlab/filing-pipeline/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.Filing
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, filing *domain.Filing) error {
	if f.err != nil {
		return f.err
	}
	copyFiling := *filing
	f.created = &copyFiling
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.Filing, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.FilingStatus, string) error {
	return errors.New("not implemented")
}
func (f *ingestRepoFake) SaveOutcome(context.Context, string, domain.Categorization, string) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	filingID string
	err      error
}

func (f *ingestQueueFake) PublishFilingReceived(_ context.Context, filingID string) error {
	if f.err != nil {
		return f.err
	}
	f.filingID = filingID
	return nil
}

func (f *ingestQueueFake) SubscribeFilingReceived(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestIngestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestFilingUseCase(repo, storage, queue)

	filing, err := uc.Upload(context.Background(), "annual report 2025.pdf", "application/pdf", bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if filing.ID == "" {
		t.Fatalf("expected filing id")
	}
	if filing.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", filing.Status)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.filingID != filing.ID {
		t.Fatalf("expected queued filing id %s, got %s", filing.ID, queue.filingID)
	}
	if !strings.Contains(storage.savedKey, "_annual_report_2025.pdf") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "hello" {
		t.Fatalf("expected saved body hello, got %s", storage.savedBody)
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{err: errors.New("queue down")}
	uc := NewIngestFilingUseCase(repo, storage, queue)

	_, err := uc.Upload(context.Background(), "report.txt", "text/plain", bytes.NewBufferString("hello"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish processing trigger") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestIngestUploadStorageErrorSkipsMetadata(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{err: errors.New("disk full")}
	queue := &ingestQueueFake{}
	uc := NewIngestFilingUseCase(repo, storage, queue)

	_, err := uc.Upload(context.Background(), "report.txt", "text/plain", bytes.NewBufferString("hello"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if repo.created != nil {
		t.Fatalf("expected no metadata row after storage failure")
	}
	if queue.filingID != "" {
		t.Fatalf("expected no queue publish after storage failure")
	}
}
