package job

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type Repository interface {
	Upsert(ctx context.Context, j *Job) (created bool, err error)
	List(ctx context.Context, f ListFilter) ([]Job, int, error)
	Count(ctx context.Context) (int, error)
}

// ListFilter narrows the job listing; zero values mean no filter.
type ListFilter struct {
	Company  string
	Location string
	Limit    int
	Offset   int
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert stores j under its external id and reports whether a new row was
// created. The read-then-write race window is closed by the unique index:
// an insert losing to a concurrent worker lands on the duplicate-key error
// and is converted into an update of the winner's row.
func (r *PostgresRepo) Upsert(ctx context.Context, j *Job) (bool, error) {
	var existingID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE external_id = $1`, j.ExternalID).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		insErr := r.insert(ctx, j)
		if insErr == nil {
			return true, nil
		}
		var pqErr *pq.Error
		if errors.As(insErr, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			// Another worker created it first; treat as an update.
			return false, r.update(ctx, j)
		}
		return false, insErr
	case err != nil:
		return false, err
	default:
		j.ID = existingID
		return false, r.update(ctx, j)
	}
}

func (r *PostgresRepo) insert(ctx context.Context, j *Job) error {
	query := `INSERT INTO jobs (external_id, title, description, company, location, type, url, raw, source_feed, last_imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, last_imported_at, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		j.ExternalID, j.Title, j.Description, j.Company, j.Location, j.Type, j.URL, []byte(j.Raw), j.SourceFeed,
	).Scan(&j.ID, &j.LastImportedAt, &j.CreatedAt, &j.UpdatedAt)
}

func (r *PostgresRepo) update(ctx context.Context, j *Job) error {
	query := `UPDATE jobs
		SET title = $2, description = $3, company = $4, location = $5, type = $6, url = $7, raw = $8, source_feed = $9,
		    last_imported_at = NOW(), updated_at = NOW()
		WHERE external_id = $1
		RETURNING id, last_imported_at`
	return r.db.QueryRowContext(ctx, query,
		j.ExternalID, j.Title, j.Description, j.Company, j.Location, j.Type, j.URL, []byte(j.Raw), j.SourceFeed,
	).Scan(&j.ID, &j.LastImportedAt)
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Job, int, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	where := ` WHERE ($1 = '' OR company = $1) AND ($2 = '' OR location = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs`+where, f.Company, f.Location).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, external_id, title, description, company, location, type, url, raw, source_feed, last_imported_at, created_at, updated_at
		FROM jobs` + where + ` ORDER BY last_imported_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, f.Company, f.Location, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var raw []byte
		if err := rows.Scan(&j.ID, &j.ExternalID, &j.Title, &j.Description, &j.Company, &j.Location, &j.Type, &j.URL, &raw, &j.SourceFeed, &j.LastImportedAt, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, 0, err
		}
		j.Raw = raw
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count)
	return count, err
}
