// Package scheduler wires up the cron job that periodically imports all
// configured feeds.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"jobgrid/importer/features/imports"
)

// Scheduler wraps robfig/cron and triggers the import service on schedule.
type Scheduler struct {
	cron    *cron.Cron
	service *imports.Service
	spec    string
}

func New(service *imports.Service, spec string) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		spec:    spec,
	}
}

// Start registers the job and starts the scheduler. Runs can overlap with a
// manual trigger; each feed still gets its own independent run row.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		slog.InfoContext(ctx, "scheduled import starting", "spec", s.spec)
		summary := s.service.Trigger(ctx)
		slog.InfoContext(ctx, "scheduled import finished",
			"succeeded", summary.Succeeded, "failed", summary.Failed)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.InfoContext(ctx, "scheduler started", "spec", s.spec)
	return nil
}

// Stop shuts the scheduler down and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}
