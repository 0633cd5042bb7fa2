package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"
	"golang.org/x/time/rate"

	"jobgrid/importer/features/deadletter"
	"jobgrid/importer/features/feed"
	"jobgrid/importer/features/imports"
	"jobgrid/importer/features/job"
	"jobgrid/importer/internal/middleware"
)

// reconcileTask mirrors the payload shape the orchestrator publishes.
type reconcileTask struct {
	RunID         string         `json:"run_id"`
	Record        feed.JobRecord `json:"record"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// Reconciler consumes one task per feed record: validate, upsert into the
// job store, and account the outcome against the owning run. Returning an
// error requeues the message with backoff; returning nil acknowledges it.
type Reconciler struct {
	jobs      JobStore
	runs      RunLedger
	dead      DeadLetters
	limiter   *rate.Limiter
	retention int
}

func NewReconciler(jobs JobStore, runs RunLedger, dead DeadLetters, ratePerSecond float64, retention int) *Reconciler {
	return &Reconciler{
		jobs:      jobs,
		runs:      runs,
		dead:      dead,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		retention: retention,
	}
}

func (h *Reconciler) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	task, ctx, ok := h.decode(m.Body)
	if !ok {
		return nil // malformed tasks can never succeed, drop them
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	rec := task.Record
	created, err := h.store(ctx, rec)
	if err != nil {
		if IsPermanent(err) {
			slog.ErrorContext(ctx, "record rejected", "external_id", rec.ExternalID, "error", err)
			return h.fail(ctx, task.RunID, recordKey(rec), err.Error())
		}
		slog.WarnContext(ctx, "job upsert failed, requeueing", "external_id", rec.ExternalID, "error", err)
		return err
	}

	counters, err := h.runs.RecordImported(ctx, task.RunID, created)
	if err != nil {
		// Requeueing re-runs the idempotent upsert; the over-count is
		// absorbed by the completion condition.
		slog.WarnContext(ctx, "failed to record import, requeueing", "run_id", task.RunID, "error", err)
		return err
	}

	slog.DebugContext(ctx, "record reconciled", "run_id", task.RunID, "external_id", rec.ExternalID, "created", created)
	return h.maybeComplete(ctx, task.RunID, counters)
}

// store validates one record and upserts it. A record that fails validation
// can never succeed, so the error comes back wrapped Permanent; the job
// store's own errors keep their classification.
func (h *Reconciler) store(ctx context.Context, rec feed.JobRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, Permanent(err)
	}

	j := &job.Job{
		ExternalID:  rec.ExternalID,
		Title:       rec.Title,
		Description: rec.Description,
		Company:     rec.Company,
		Location:    rec.Location,
		Type:        rec.Type,
		URL:         rec.URL,
		Raw:         rec.Raw,
		SourceFeed:  rec.SourceFeed,
	}
	return h.jobs.Upsert(ctx, j)
}

// LogFailedMessage runs once the queue gives up on a task. The failure is
// accounted against the run and the payload archived for manual requeue.
func (h *Reconciler) LogFailedMessage(m *nsq.Message) {
	task, ctx, ok := h.decode(m.Body)
	if !ok {
		return
	}

	slog.ErrorContext(ctx, "task exhausted delivery attempts",
		"run_id", task.RunID, "external_id", task.Record.ExternalID, "attempts", m.Attempts)

	if err := h.dead.Save(ctx, &deadletter.Task{
		RunID:    task.RunID,
		Payload:  append([]byte(nil), m.Body...),
		Error:    "delivery attempts exhausted",
		Attempts: int(m.Attempts),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to archive dead task", "run_id", task.RunID, "error", err)
	} else if err := h.dead.Prune(ctx, h.retention); err != nil {
		slog.WarnContext(ctx, "failed to prune dead task archive", "error", err)
	}

	if err := h.fail(ctx, task.RunID, recordKey(task.Record), "delivery attempts exhausted"); err != nil {
		slog.ErrorContext(ctx, "failed to account exhausted task", "run_id", task.RunID, "error", err)
	}
}

func (h *Reconciler) decode(body []byte) (reconcileTask, context.Context, bool) {
	var task reconcileTask
	err := json.Unmarshal(body, &task)

	correlationID := task.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid task format", "error", err)
		return task, ctx, false
	}
	if task.RunID == "" {
		slog.ErrorContext(ctx, "task missing run id, dropping")
		return task, ctx, false
	}
	return task, ctx, true
}

// fail records one permanent record failure and checks completion. The
// append-and-increment is atomic on the repository side.
func (h *Reconciler) fail(ctx context.Context, runID, key, reason string) error {
	counters, err := h.runs.RecordFailure(ctx, runID, key, reason)
	if err != nil {
		slog.WarnContext(ctx, "failed to record failure, requeueing", "run_id", runID, "error", err)
		return err
	}
	return h.maybeComplete(ctx, runID, counters)
}

func (h *Reconciler) maybeComplete(ctx context.Context, runID string, counters imports.Counters) error {
	if !counters.Balanced() {
		return nil
	}
	// Concurrent balancers race here; the conditional update makes the
	// extra calls no-ops.
	if err := h.runs.MarkCompleted(ctx, runID); err != nil {
		slog.WarnContext(ctx, "failed to complete run, requeueing", "run_id", runID, "error", err)
		return err
	}
	slog.InfoContext(ctx, "import run completed", "run_id", runID,
		"total_fetched", counters.TotalFetched, "total_imported", counters.TotalImported, "failed_jobs", counters.FailedJobs)
	return nil
}

func recordKey(rec feed.JobRecord) string {
	if rec.ExternalID != "" {
		return rec.ExternalID
	}
	return "unknown"
}
