package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/bootstrap"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/config"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/observability/logging"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics("worker")
	go serveMetrics(ctx, cfg.WorkerMetricsPort, pipelineMetrics)

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	runs := newRunSlots(concurrency)

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", concurrency)
	err = app.Queue.SubscribeReprocess(ctx, func(handlerCtx context.Context, job domain.ReprocessJob) error {
		if !job.EnqueuedAt.IsZero() {
			pipelineMetrics.ObserveQueueLag("worker", time.Since(job.EnqueuedAt))
		}
		// Hand the run off so the subscription callback returns and the
		// dispatcher can deliver the next message while this one processes.
		runs.Go(func() {
			processDocument(handlerCtx, app, pipelineMetrics, job.DocumentID)
		})
		return nil
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
	runs.Wait()
}

func processDocument(ctx context.Context, app *bootstrap.App, m *metrics.PipelineMetrics, documentID string) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	m.StartRun()
	start := time.Now()
	result, err := app.ProcessUC.ProcessByID(runCtx, documentID)
	if err != nil {
		m.FinishRun("worker", "failed", 0, time.Since(start))
		slog.Error("reprocess_failed", "document_id", documentID, "error", err)
		return
	}
	m.FinishRun("worker", string(result.Status), result.ValidationDetails.OverallQuality, time.Since(start))
}

func serveMetrics(ctx context.Context, port string, m *metrics.PipelineMetrics) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("worker_metrics_server_failed", "error", err)
	}
}
