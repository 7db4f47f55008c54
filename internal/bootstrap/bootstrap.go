package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/edgarlab/filing-pipeline/internal/config"
	"github.com/edgarlab/filing-pipeline/internal/core/domain"
	"github.com/edgarlab/filing-pipeline/internal/core/ports"
	"github.com/edgarlab/filing-pipeline/internal/core/usecase"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/convert/docparse"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/convert/localtext"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/llm/ollama"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/queue/nats"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/repository/postgres"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/resilience"
	"github.com/edgarlab/filing-pipeline/internal/infrastructure/storage/localfs"
)

// App wires the collaborator handles once at startup; everything is
// constructed here and passed by reference, no global mutable state.
type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.FilingRepository
	Store     ports.RecordStore
	IngestUC  ports.FilingIngestor
	ProcessUC *usecase.ProcessFilingUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewFilingRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure filings schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	store := postgres.NewRecordStoreWithExecutor(db, executor)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure records schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	var converter ports.DocumentConverter
	if cfg.ParserURL != "" {
		converter = docparse.New(cfg.ParserURL, executor)
	} else {
		converter = localtext.New()
	}

	llmClient := ollama.New(cfg.LLMURL, cfg.LLMModel, executor)
	categorizer := ollama.NewCategorizer(llmClient)
	extractor := ollama.NewExtractor(llmClient)

	rules, err := config.LoadCategoryRules(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load category rules: %w", err)
	}

	timeouts := usecase.StageTimeouts{
		Acquire:    time.Duration(cfg.AcquireTimeoutSeconds) * time.Second,
		Normalize:  time.Duration(cfg.NormalizeTimeoutSeconds) * time.Second,
		Categorize: time.Duration(cfg.CategorizeTimeoutSeconds) * time.Second,
		Extract:    time.Duration(cfg.ExtractTimeoutSeconds) * time.Second,
		Persist:    time.Duration(cfg.PersistTimeoutSeconds) * time.Second,
	}

	ingestUC := usecase.NewIngestFilingUseCase(repo, storage, queue)
	processUC := usecase.NewProcessFilingUseCase(
		repo, storage, converter, categorizer, extractor, store,
		rules, domain.ConvertMode(cfg.ConvertMode), timeouts,
	)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Store:  store,

		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
