package models

// Job and run statuses, as stored in the checks table.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// IsFinal reports whether status is a terminal job status.
func IsFinal(status string) bool {
	switch status {
	case StatusSuccess, StatusFailure, StatusError, StatusSkipped:
		return true
	}
	return false
}

// IsOK reports whether a job with this status lets dependent jobs run.
func IsOK(status string) bool {
	return status == StatusSuccess
}
