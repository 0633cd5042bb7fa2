package worker

import (
	"errors"

	"github.com/lib/pq"
)

// permanentError marks an error that retrying the same task cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the reconciler accounts the failure and finishes
// the task instead of requeueing it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err can never succeed on retry: explicitly
// wrapped errors, plus Postgres data exceptions (class 22) and integrity
// violations (class 23), which come from the record itself. Everything else
// is assumed transient and left to the queue's backoff.
func IsPermanent(err error) bool {
	var p *permanentError
	if errors.As(err, &p) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		return class == "22" || class == "23"
	}
	return false
}
