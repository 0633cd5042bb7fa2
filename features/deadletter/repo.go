package deadletter

import (
	"context"
	"database/sql"
	"encoding/json"
)

type Repository interface {
	Save(ctx context.Context, task *Task) error
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id string) (*Task, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Prune(ctx context.Context, keep int) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, task *Task) error {
	query := `INSERT INTO dead_tasks (run_id, payload, error, attempts) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, task.RunID, []byte(task.Payload), task.Error, task.Attempts).Scan(&task.ID, &task.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context) ([]Task, error) {
	query := `SELECT id, run_id, payload, error, attempts, created_at FROM dead_tasks ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var payload []byte
		if err := rows.Scan(&t.ID, &t.RunID, &payload, &t.Error, &t.Attempts, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Payload = json.RawMessage(payload)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Task, error) {
	t := &Task{}
	var payload []byte
	query := `SELECT id, run_id, payload, error, attempts, created_at FROM dead_tasks WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.RunID, &payload, &t.Error, &t.Attempts, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Payload = json.RawMessage(payload)
	return t, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM dead_tasks WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM dead_tasks`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

// Prune drops everything but the newest keep entries. The archive is an
// operator convenience, not a system of record, so it stays bounded.
func (r *PostgresRepo) Prune(ctx context.Context, keep int) error {
	query := `DELETE FROM dead_tasks WHERE id NOT IN (
		SELECT id FROM dead_tasks ORDER BY created_at DESC LIMIT $1)`
	_, err := r.db.ExecContext(ctx, query, keep)
	return err
}
