package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// InvalidInputMessage is reported for jobs whose input is not a JSON object
const InvalidInputMessage = "job input is missing or not an object"

// Job is the dispatcher's transient view of a queue service record
type Job struct {
	ID            string
	Input         map[string]any
	WebhookSecret string
}

// rawJob mirrors the wire format; fields are decoded loosely so a single bad
// job can be diagnosed without failing the whole batch.
type rawJob struct {
	ID            json.RawMessage `json:"id"`
	Input         json.RawMessage `json:"input"`
	WebhookSecret string          `json:"webhook_secret"`
}

// ParseJob decodes one job from the poll response. When the id is readable
// but the input is not, the returned Job carries the id together with an
// error wrapping ErrInvalidJob so the caller can still report the failure.
func ParseJob(data json.RawMessage) (Job, error) {
	var raw rawJob
	if err := json.Unmarshal(data, &raw); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	id, err := parseID(raw.ID)
	if err != nil {
		return Job{}, err
	}

	job := Job{ID: id, WebhookSecret: raw.WebhookSecret}

	if len(raw.Input) == 0 || string(raw.Input) == "null" {
		return job, fmt.Errorf("%w: %s", ErrInvalidJob, InvalidInputMessage)
	}
	if err := json.Unmarshal(raw.Input, &job.Input); err != nil {
		return job, fmt.Errorf("%w: %s", ErrInvalidJob, InvalidInputMessage)
	}

	return job, nil
}

// parseID accepts string ids and, for queue services that use integer keys,
// JSON numbers.
func parseID(data json.RawMessage) (string, error) {
	if len(data) == 0 || string(data) == "null" {
		return "", fmt.Errorf("%w: missing id", ErrInvalidJob)
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("%w: empty id", ErrInvalidJob)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String(), nil
	}

	return "", fmt.Errorf("%w: id must be a string or number", ErrInvalidJob)
}

// ExecutionResult is the outcome of one execution attempt
type ExecutionResult struct {
	Success bool
	Result  any
	Error   string
}

// Status maps the outcome to the queue status reported for the job
func (r ExecutionResult) Status() string {
	if r.Success {
		return JobStatusCompleted
	}
	return JobStatusFailed
}

// CompletionReport is the body of the job-complete webhook
type CompletionReport struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	WebhookSecret string `json:"webhook_secret"`
	Result        any    `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewCompletionReport builds the report for a job outcome. The result is
// only attached on success and the error only on failure.
func NewCompletionReport(job Job, res ExecutionResult) CompletionReport {
	report := CompletionReport{
		JobID:         job.ID,
		Status:        res.Status(),
		WebhookSecret: job.WebhookSecret,
	}

	if res.Success && res.Result != nil {
		report.Result = res.Result
	}
	if !res.Success && res.Error != "" {
		report.Error = res.Error
	}

	return report
}

// JobOutcome is the event published after a job has been handled
type JobOutcome struct {
	EventID      string    `json:"event_id"`
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
	Reported     bool      `json:"reported"`
	DurationMs   int64     `json:"duration_ms"`
	DispatcherID string    `json:"dispatcher_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}
