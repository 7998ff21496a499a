package domain

// Job status values understood by the queue service
const (
	JobStatusPending   = "pending"
	JobStatusStarted   = "started"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)
