package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"jobgrid/importer/features/deadletter"
	"jobgrid/importer/features/feed"
	"jobgrid/importer/features/imports"
	"jobgrid/importer/features/job"
	"jobgrid/importer/internal/config"
	"jobgrid/importer/internal/middleware"
	"jobgrid/importer/internal/worker"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler       http.Handler
	ImportService *imports.Service
	Reconciler    *worker.Reconciler
	port          int
}

func New(cfg *config.Config, db *sql.DB, taskPub TaskPublisher) (*App, error) {
	feedClient := feed.NewClient(cfg.FeedFetchTimeout)

	// Feature: Imports
	importRepo := imports.NewPostgresRepo(db)
	orchestrator := imports.NewOrchestrator(feedClient, importRepo, taskPub, cfg.FeedPacingInterval)
	importService := imports.NewService(importRepo, orchestrator, cfg.FeedURLs)
	importHandler := imports.NewHandler(importService)

	// Feature: Job
	jobRepo := job.NewPostgresRepo(db)
	jobHandler := job.NewHandler(jobRepo)

	// Feature: Dead letter
	deadRepo := deadletter.NewPostgresRepo(db)
	deadService := deadletter.NewService(deadRepo, taskPub)
	deadHandler := deadletter.NewHandler(deadService)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("GET /imports", middleware.CorrelationID(enableCORS(importHandler.List)))
	mux.Handle("GET /imports/stats", middleware.CorrelationID(enableCORS(importHandler.Stats)))
	mux.Handle("GET /imports/{id}", middleware.CorrelationID(enableCORS(importHandler.Get)))
	mux.Handle("POST /imports/trigger", middleware.CorrelationID(enableCORS(importHandler.Trigger)))

	mux.Handle("GET /jobs", middleware.CorrelationID(enableCORS(jobHandler.List)))

	mux.Handle("GET /deadletter", middleware.CorrelationID(enableCORS(deadHandler.List)))
	mux.Handle("POST /deadletter/{id}/retry", middleware.CorrelationID(enableCORS(deadHandler.Retry)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	reconciler := worker.NewReconciler(jobRepo, importRepo, deadRepo,
		cfg.WorkerRatePerSecond, cfg.DeadLetterRetention)

	return &App{
		Handler:       mux,
		ImportService: importService,
		Reconciler:    reconciler,
		port:          cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
