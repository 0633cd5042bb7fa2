package worker

import (
	"context"

	"jobgrid/importer/features/deadletter"
	"jobgrid/importer/features/imports"
	"jobgrid/importer/features/job"
)

type JobStore interface {
	Upsert(ctx context.Context, j *job.Job) (created bool, err error)
}

// RunLedger is the slice of the run repository the reconciler needs: atomic
// counter updates returning fresh snapshots, plus idempotent completion.
type RunLedger interface {
	RecordImported(ctx context.Context, runID string, created bool) (imports.Counters, error)
	RecordFailure(ctx context.Context, runID, recordKey, reason string) (imports.Counters, error)
	MarkCompleted(ctx context.Context, runID string) error
}

type DeadLetters interface {
	Save(ctx context.Context, task *deadletter.Task) error
	Prune(ctx context.Context, keep int) error
}
