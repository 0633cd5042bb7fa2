package feed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JobRecord is the canonical job posting shape every feed normalizes into.
// Raw preserves the source item verbatim for audit.
type JobRecord struct {
	ExternalID  string          `json:"external_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Company     string          `json:"company"`
	Location    string          `json:"location"`
	Type        string          `json:"type"`
	URL         string          `json:"url"`
	Raw         json.RawMessage `json:"raw"`
	SourceFeed  string          `json:"source_feed"`
}

// Validate reports the required identity fields that are still empty after
// normalization fallbacks. Such records cannot be reconciled.
func (r *JobRecord) Validate() error {
	var missing []string
	if r.ExternalID == "" {
		missing = append(missing, "externalId")
	}
	if r.Title == "" {
		missing = append(missing, "title")
	}
	if r.Company == "" {
		missing = append(missing, "company")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseError indicates the feed body had no recognizable item structure.
type ParseError struct {
	FeedURL string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse feed %s: %v", e.FeedURL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
