package imports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	Create(ctx context.Context, run *ImportRun) error
	MarkQueued(ctx context.Context, id string) (Counters, bool, error)
	MarkFailed(ctx context.Context, id, recordKey, reason string) error
	RecordImported(ctx context.Context, id string, created bool) (Counters, error)
	RecordFailure(ctx context.Context, id, recordKey, reason string) (Counters, error)
	MarkCompleted(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]ImportRun, int, error)
	Get(ctx context.Context, id string) (*ImportRun, error)
	Stats(ctx context.Context) (*Stats, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Create(ctx context.Context, run *ImportRun) error {
	query := `INSERT INTO import_runs (feed_url, total_fetched, status) VALUES ($1, $2, $3) RETURNING id, started_at, updated_at`
	return r.db.QueryRowContext(ctx, query, run.FeedURL, run.TotalFetched, string(run.Status)).
		Scan(&run.ID, &run.StartedAt, &run.UpdatedAt)
}

// MarkQueued flips a freshly dispatched run from processing to queued and
// returns the counters as of that transition. The guard keeps a run that
// workers already completed (or failed) from being dragged back; applied is
// false when the transition did not happen.
func (r *PostgresRepo) MarkQueued(ctx context.Context, id string) (Counters, bool, error) {
	query := `UPDATE import_runs SET status = 'queued', updated_at = NOW()
		WHERE id = $1 AND status = 'processing'
		RETURNING total_fetched, total_imported, failed_jobs`

	var c Counters
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&c.TotalFetched, &c.TotalImported, &c.FailedJobs)
	if errors.Is(err, sql.ErrNoRows) {
		return Counters{}, false, nil
	}
	if err != nil {
		return Counters{}, false, fmt.Errorf("mark run %s queued: %w", id, err)
	}
	return c, true, nil
}

// MarkFailed moves a run to failed and appends one synthetic failure entry
// describing the cause. Counters are left untouched.
func (r *PostgresRepo) MarkFailed(ctx context.Context, id, recordKey, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE import_runs SET status = 'failed', updated_at = NOW() WHERE id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_run_failures (run_id, record_key, reason) VALUES ($1, $2, $3)`,
		id, recordKey, reason); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordImported atomically counts one successful reconciliation, bumping
// exactly one of new_jobs/updated_jobs, and returns the post-increment
// counters.
func (r *PostgresRepo) RecordImported(ctx context.Context, id string, created bool) (Counters, error) {
	query := `UPDATE import_runs
		SET total_imported = total_imported + 1,
		    new_jobs = new_jobs + CASE WHEN $2 THEN 1 ELSE 0 END,
		    updated_jobs = updated_jobs + CASE WHEN $2 THEN 0 ELSE 1 END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING total_fetched, total_imported, failed_jobs`

	var c Counters
	err := r.db.QueryRowContext(ctx, query, id, created).
		Scan(&c.TotalFetched, &c.TotalImported, &c.FailedJobs)
	if err != nil {
		return Counters{}, fmt.Errorf("record imported for run %s: %w", id, err)
	}
	return c, nil
}

// RecordFailure atomically counts one permanent failure and appends its
// entry to the run's failure list, returning the post-increment counters.
func (r *PostgresRepo) RecordFailure(ctx context.Context, id, recordKey, reason string) (Counters, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Counters{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_run_failures (run_id, record_key, reason) VALUES ($1, $2, $3)`,
		id, recordKey, reason); err != nil {
		return Counters{}, fmt.Errorf("append failure for run %s: %w", id, err)
	}

	var c Counters
	err = tx.QueryRowContext(ctx,
		`UPDATE import_runs SET failed_jobs = failed_jobs + 1, updated_at = NOW()
		 WHERE id = $1
		 RETURNING total_fetched, total_imported, failed_jobs`, id).
		Scan(&c.TotalFetched, &c.TotalImported, &c.FailedJobs)
	if err != nil {
		return Counters{}, fmt.Errorf("record failure for run %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return Counters{}, err
	}
	return c, nil
}

// MarkCompleted transitions a run to completed. The condition makes the
// transition idempotent and keeps failed runs failed, so concurrent workers
// observing the balanced counters can all call it safely.
func (r *PostgresRepo) MarkCompleted(ctx context.Context, id string) error {
	query := `UPDATE import_runs SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status IN ('queued', 'processing')`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

const runColumns = `id, feed_url, started_at, total_fetched, total_imported, new_jobs, updated_jobs, failed_jobs, status, updated_at`

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]ImportRun, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + runColumns + ` FROM import_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var run ImportRun
		if err := scanRun(rows, &run); err != nil {
			return nil, 0, err
		}
		runs = append(runs, run)
	}
	return runs, total, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*ImportRun, error) {
	run := &ImportRun{}
	query := `SELECT ` + runColumns + ` FROM import_runs WHERE id = $1`
	if err := scanRun(r.db.QueryRowContext(ctx, query, id), run); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT record_key, reason, occurred_at FROM import_run_failures WHERE run_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RecordKey, &f.Reason, &f.OccurredAt); err != nil {
			return nil, err
		}
		run.Failures = append(run.Failures, f)
	}
	return run, rows.Err()
}

func (r *PostgresRepo) Stats(ctx context.Context) (*Stats, error) {
	query := `SELECT COUNT(*),
		COALESCE(SUM(total_fetched), 0),
		COALESCE(SUM(total_imported), 0),
		COALESCE(SUM(new_jobs), 0),
		COALESCE(SUM(updated_jobs), 0),
		COALESCE(SUM(failed_jobs), 0),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'failed')
		FROM import_runs`

	s := &Stats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalImports, &s.TotalJobsFetched, &s.TotalJobsImported,
		&s.TotalNewJobs, &s.TotalUpdatedJobs, &s.TotalFailedJobs,
		&s.CompletedImports, &s.FailedImports)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner, run *ImportRun) error {
	var status string
	err := row.Scan(&run.ID, &run.FeedURL, &run.StartedAt, &run.TotalFetched,
		&run.TotalImported, &run.NewJobs, &run.UpdatedJobs, &run.FailedJobs,
		&status, &run.UpdatedAt)
	run.Status = Status(status)
	return err
}
