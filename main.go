package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"jobgrid/importer/internal/app"
	"jobgrid/importer/internal/config"
	"jobgrid/importer/internal/logger"
	"jobgrid/importer/internal/scheduler"
)

func main() {
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	if err := run(); err != nil {
		slog.Error("importer exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()
	defer deps.NSQProducer.Stop()
	slog.Info("migrations applied, dependencies ready")

	a, err := app.New(cfg, deps.DB, deps.NSQProducer)
	if err != nil {
		return err
	}

	consumer, err := newTaskConsumer(cfg, a)
	if err != nil {
		return err
	}
	defer consumer.Stop()

	if cfg.EnableScheduler {
		sched := scheduler.New(a.ImportService, cfg.ImportCronSpec)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	return a.Run(ctx)
}

// newTaskConsumer starts the reconciler pool on the task topic. Attempts and
// backoff come from config; exhausted messages land in the failure logger.
func newTaskConsumer(cfg *config.Config, a *app.App) (*nsq.Consumer, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxAttempts = uint16(cfg.QueueMaxAttempts)
	nsqCfg.MaxInFlight = cfg.WorkerConcurrency
	nsqCfg.BackoffMultiplier = cfg.QueueBackoffBase
	nsqCfg.MaxBackoffDuration = cfg.QueueBackoffMax

	consumer, err := nsq.NewConsumer(config.TopicImportTask, config.ChannelReconciler, nsqCfg)
	if err != nil {
		return nil, err
	}

	consumer.SetLoggerLevel(nsq.LogLevelWarning)
	// The reconciler implements nsq.FailedMessageLogger, so exhausted
	// messages flow into its dead letter path automatically.
	consumer.AddConcurrentHandlers(a.Reconciler, cfg.WorkerConcurrency)

	if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
		return nil, err
	}
	slog.Info("reconciler pool connected", "concurrency", cfg.WorkerConcurrency, "max_attempts", cfg.QueueMaxAttempts)
	return consumer, nil
}
