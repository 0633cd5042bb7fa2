package job

import (
	"encoding/json"
	"time"
)

// Job is the persistent form of a reconciled job record, keyed by the
// globally unique ExternalID. Rows are created on first reconciliation and
// overwritten in place on every later one; the pipeline never deletes them.
type Job struct {
	ID             string          `json:"id"`
	ExternalID     string          `json:"external_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Company        string          `json:"company"`
	Location       string          `json:"location"`
	Type           string          `json:"type"`
	URL            string          `json:"url"`
	Raw            json.RawMessage `json:"raw"`
	SourceFeed     string          `json:"source_feed"`
	LastImportedAt time.Time       `json:"last_imported_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
