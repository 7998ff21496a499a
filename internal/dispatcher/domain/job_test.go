package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJob(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantID    string
		wantInput map[string]any
		wantErr   string
	}{
		{
			name:      "complete job",
			raw:       `{"id":"job-1","input":{"url":"https://example.com","mode":"quick"},"webhook_secret":"s3"}`,
			wantID:    "job-1",
			wantInput: map[string]any{"url": "https://example.com", "mode": "quick"},
		},
		{
			name:      "numeric id",
			raw:       `{"id":42,"input":{}}`,
			wantID:    "42",
			wantInput: map[string]any{},
		},
		{
			name:    "missing id",
			raw:     `{"input":{"url":"https://example.com"}}`,
			wantErr: "missing id",
		},
		{
			name:    "empty id",
			raw:     `{"id":"","input":{}}`,
			wantErr: "empty id",
		},
		{
			name:    "boolean id",
			raw:     `{"id":true,"input":{}}`,
			wantErr: "id must be a string or number",
		},
		{
			name:    "missing input keeps id",
			raw:     `{"id":"job-2"}`,
			wantID:  "job-2",
			wantErr: "job input is missing",
		},
		{
			name:    "input is not an object",
			raw:     `{"id":"job-3","input":"https://example.com"}`,
			wantID:  "job-3",
			wantErr: "job input is missing",
		},
		{
			name:    "not an object at all",
			raw:     `["job-4"]`,
			wantErr: "invalid job",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := ParseJob(json.RawMessage(tt.raw))

			assert.Equal(t, tt.wantID, job.ID)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidJob))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantInput, job.Input)
		})
	}
}

func TestNewCompletionReport(t *testing.T) {
	job := Job{ID: "job-1", WebhookSecret: "secret"}

	t.Run("success carries result only", func(t *testing.T) {
		report := NewCompletionReport(job, ExecutionResult{Success: true, Result: map[string]any{"content": "# Done"}, Error: "ignored"})

		assert.Equal(t, JobStatusCompleted, report.Status)
		assert.Equal(t, "secret", report.WebhookSecret)
		assert.NotNil(t, report.Result)
		assert.Empty(t, report.Error)
	})

	t.Run("failure carries error only", func(t *testing.T) {
		report := NewCompletionReport(job, ExecutionResult{Success: false, Result: "ignored", Error: "Execution timed out"})

		assert.Equal(t, JobStatusFailed, report.Status)
		assert.Nil(t, report.Result)
		assert.Equal(t, "Execution timed out", report.Error)
	})

	t.Run("optional fields are omitted on the wire", func(t *testing.T) {
		data, err := json.Marshal(NewCompletionReport(job, ExecutionResult{Success: true}))
		require.NoError(t, err)

		assert.JSONEq(t, `{"job_id":"job-1","status":"completed","webhook_secret":"secret"}`, string(data))
	})
}

func TestHTTPError(t *testing.T) {
	inner := errors.New("bad gateway")
	err := &HTTPError{StatusCode: 502, Err: inner}

	assert.Equal(t, "HTTP 502: bad gateway", err.Error())
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, "HTTP 404", (&HTTPError{StatusCode: 404}).Error())
}
