package imports

import "time"

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Failure is one append-only entry in a run's failure list.
type Failure struct {
	RecordKey  string    `json:"record_key"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ImportRun is the ledger entry for one fetch-and-process cycle of a single
// feed. TotalFetched is fixed at creation; the remaining counters only ever
// increase, and the run completes exactly when they balance.
type ImportRun struct {
	ID            string    `json:"id"`
	FeedURL       string    `json:"feed_url"`
	StartedAt     time.Time `json:"started_at"`
	TotalFetched  int       `json:"total_fetched"`
	TotalImported int       `json:"total_imported"`
	NewJobs       int       `json:"new_jobs"`
	UpdatedJobs   int       `json:"updated_jobs"`
	FailedJobs    int       `json:"failed_jobs"`
	Status        Status    `json:"status"`
	Failures      []Failure `json:"failures,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Counters is the post-increment snapshot returned by every atomic counter
// update, so completion checks never re-read stale state.
type Counters struct {
	TotalFetched  int
	TotalImported int
	FailedJobs    int
}

// Balanced reports whether every dispatched record has been accounted for.
// At-least-once delivery can over-count after a crash between ack and
// finish, hence >= rather than strict equality.
func (c Counters) Balanced() bool {
	return c.TotalImported+c.FailedJobs >= c.TotalFetched
}

// Stats aggregates counters across all runs.
type Stats struct {
	TotalImports      int `json:"total_imports"`
	TotalJobsFetched  int `json:"total_jobs_fetched"`
	TotalJobsImported int `json:"total_jobs_imported"`
	TotalNewJobs      int `json:"total_new_jobs"`
	TotalUpdatedJobs  int `json:"total_updated_jobs"`
	TotalFailedJobs   int `json:"total_failed_jobs"`
	CompletedImports  int `json:"completed_imports"`
	FailedImports     int `json:"failed_imports"`
}
