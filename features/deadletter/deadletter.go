package deadletter

import (
	"encoding/json"
	"time"
)

// Task is a reconciliation task that exhausted its delivery attempts. The
// payload is archived verbatim so an operator can requeue it unchanged.
type Task struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}
