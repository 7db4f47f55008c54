package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/edgarlab/filing-pipeline/internal/bootstrap"
	"github.com/edgarlab/filing-pipeline/internal/config"
	"github.com/edgarlab/filing-pipeline/internal/observability/logging"
	"github.com/edgarlab/filing-pipeline/internal/observability/metrics"
)

const serviceName = "filing-worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics(serviceName)
	processUC := app.ProcessUC.WithObserver(pipelineMetrics.Recorder(serviceName))

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: pipelineMetrics.Handler(),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
		return app.Queue.SubscribeFilingReceived(groupCtx, func(handlerCtx context.Context, filingID string) error {
			processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()

			pipelineMetrics.StartRun()
			start := time.Now()
			record, err := processUC.ProcessByID(processCtx, filingID)

			category := ""
			if record != nil {
				category = string(record.Category)
			}
			pipelineMetrics.FinishRun(serviceName, category, time.Since(start), err)
			return err
		})
	})

	if err := group.Wait(); err != nil {
		slog.Error("worker_terminated", "error", err)
		os.Exit(1)
	}
}
