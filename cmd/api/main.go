package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/edgarlab/filing-pipeline/internal/adapters/http"
	"github.com/edgarlab/filing-pipeline/internal/bootstrap"
	"github.com/edgarlab/filing-pipeline/internal/config"
	"github.com/edgarlab/filing-pipeline/internal/observability/logging"
	"github.com/edgarlab/filing-pipeline/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("filing-api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("filing-api")
	router := httpadapter.NewRouter(cfg, app.IngestUC, app.Repo, app.Store).Handler()

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", httpMetrics.Instrument("filing-api", collapsePathLabel, router))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("api_terminated", "error", err)
		os.Exit(1)
	}
}

// collapsePathLabel keeps metric label cardinality bounded by folding
// per-resource path segments into one label per route.
func collapsePathLabel(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/v1/filings/"):
		return "/v1/filings/{id}"
	case strings.HasPrefix(path, "/v1/records/"):
		return "/v1/records/{id}"
	default:
		return path
	}
}
