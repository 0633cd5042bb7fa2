package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobgrid/importer/features/feed"
	"jobgrid/importer/internal/config"
	"jobgrid/importer/internal/middleware"
)

// FeedClient fetches and normalizes one feed.
type FeedClient interface {
	Fetch(ctx context.Context, feedURL string) ([]feed.JobRecord, error)
}

// TaskPublisher puts reconciliation tasks on the dispatch queue.
type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// reconcileTask is the queue payload: one record plus its owning run. The
// reconciler unmarshals the matching shape on the consumer side.
type reconcileTask struct {
	RunID         string         `json:"run_id"`
	Record        feed.JobRecord `json:"record"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// FeedResult summarizes one successfully dispatched feed.
type FeedResult struct {
	FeedURL      string `json:"feed_url"`
	RunID        string `json:"run_id"`
	TotalFetched int    `json:"total_fetched"`
}

// FeedError records why one feed was skipped.
type FeedError struct {
	FeedURL string `json:"feed_url"`
	Error   string `json:"error"`
}

// Summary is the outcome of one orchestration pass over all feeds.
type Summary struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []FeedResult `json:"results"`
	Errors    []FeedError  `json:"errors"`
}

// Orchestrator walks the configured feed list strictly sequentially:
// fetch, normalize, open a run, dispatch one task per record, pace, repeat.
// A failing feed never aborts its siblings.
type Orchestrator struct {
	feeds  FeedClient
	repo   Repository
	pub    TaskPublisher
	pacing time.Duration
}

func NewOrchestrator(feeds FeedClient, repo Repository, pub TaskPublisher, pacing time.Duration) *Orchestrator {
	return &Orchestrator{feeds: feeds, repo: repo, pub: pub, pacing: pacing}
}

func (o *Orchestrator) ImportFeeds(ctx context.Context, feedURLs []string) *Summary {
	summary := &Summary{}

	for i, feedURL := range feedURLs {
		result, err := o.importOne(ctx, feedURL)
		if err != nil {
			slog.ErrorContext(ctx, "feed import failed", "feed_url", feedURL, "error", err)
			summary.Failed++
			summary.Errors = append(summary.Errors, FeedError{FeedURL: feedURL, Error: err.Error()})
		} else {
			summary.Succeeded++
			summary.Results = append(summary.Results, *result)
		}

		// Upstream rate limits: fixed pacing delay between feeds.
		if i < len(feedURLs)-1 && o.pacing > 0 {
			select {
			case <-ctx.Done():
				return summary
			case <-time.After(o.pacing):
			}
		}
	}

	slog.InfoContext(ctx, "feed import pass finished", "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary
}

func (o *Orchestrator) importOne(ctx context.Context, feedURL string) (*FeedResult, error) {
	records, err := o.feeds.Fetch(ctx, feedURL)
	if err != nil {
		// No run is created for a feed that never produced records.
		return nil, err
	}

	run := &ImportRun{
		FeedURL:      feedURL,
		TotalFetched: len(records),
		Status:       StatusProcessing,
	}
	// An empty feed has nothing to reconcile; the completion condition is
	// vacuously true, so the run is born completed instead of stuck queued.
	if len(records) == 0 {
		run.Status = StatusCompleted
	}

	// The run row must exist, with its final total_fetched, before the
	// first task can possibly be consumed.
	if err := o.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create import run for %s: %w", feedURL, err)
	}

	if len(records) == 0 {
		slog.InfoContext(ctx, "feed produced no records", "feed_url", feedURL, "run_id", run.ID)
		return &FeedResult{FeedURL: feedURL, RunID: run.ID}, nil
	}

	correlationID := middleware.GetCorrelationID(ctx)
	if correlationID == "unknown" {
		correlationID = uuid.New().String()
	}

	for _, rec := range records {
		body, err := json.Marshal(reconcileTask{RunID: run.ID, Record: rec, CorrelationID: correlationID})
		if err == nil {
			err = o.pub.Publish(config.TopicImportTask, body)
		}
		if err != nil {
			if markErr := o.repo.MarkFailed(ctx, run.ID, "feed_dispatch", err.Error()); markErr != nil {
				slog.ErrorContext(ctx, "failed to mark run as failed", "run_id", run.ID, "error", markErr)
			}
			return nil, fmt.Errorf("dispatch tasks for %s: %w", feedURL, err)
		}
	}

	// Workers may finish every task between the last publish and this
	// transition; the guard refuses to drag a completed run back, and the
	// returned counters re-run the completion check for the window where
	// the run was still processing.
	counters, applied, err := o.repo.MarkQueued(ctx, run.ID)
	if err != nil {
		slog.WarnContext(ctx, "failed to set run status to queued", "run_id", run.ID, "error", err)
	} else if applied && counters.Balanced() {
		if err := o.repo.MarkCompleted(ctx, run.ID); err != nil {
			slog.WarnContext(ctx, "failed to complete run", "run_id", run.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "feed dispatched", "feed_url", feedURL, "run_id", run.ID, "records", len(records))
	return &FeedResult{FeedURL: feedURL, RunID: run.ID, TotalFetched: len(records)}, nil
}
