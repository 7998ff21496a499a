package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/domain"
)

const (
	jobsPath        = "api/jobs"
	jobStartedPath  = "api/webhook/job-started"
	jobCompletePath = "api/webhook/job-complete"

	// errorBodyLimit caps how much of a failed response is kept for logs
	errorBodyLimit = 512
)

// Client talks to the remote job queue service over REST/JSON
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewClient creates a queue client. timeout bounds every control-plane call.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
	}
}

type listJobsResponse struct {
	Jobs []json.RawMessage `json:"jobs"`
}

type jobStartedRequest struct {
	JobID         string `json:"job_id"`
	WebhookSecret string `json:"webhook_secret"`
}

// ListPending fetches up to limit pending jobs. Jobs are returned undecoded
// so each one can be validated on its own.
func (c *Client) ListPending(ctx context.Context, limit int) ([]json.RawMessage, error) {
	endpoint, err := url.JoinPath(c.baseURL, jobsPath)
	if err != nil {
		return nil, fmt.Errorf("building jobs url: %w", err)
	}

	query := url.Values{}
	query.Set("status", domain.JobStatusPending)
	query.Set("limit", strconv.Itoa(limit))
	endpoint += "?" + query.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building jobs request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w: %w", domain.ErrQueueUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("list pending jobs: %w: %w", domain.ErrQueueUnavailable, err)
	}

	var body listJobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("list pending jobs: %w: decoding response: %w", domain.ErrQueueUnavailable, err)
	}

	c.logger.Debug("Polled queue service",
		slog.Int("jobs", len(body.Jobs)),
		slog.Int("limit", limit),
	)

	return body.Jobs, nil
}

// MarkStarted moves a job from pending to started
func (c *Client) MarkStarted(ctx context.Context, jobID, webhookSecret string) error {
	err := c.postJSON(ctx, jobStartedPath, jobStartedRequest{
		JobID:         jobID,
		WebhookSecret: webhookSecret,
	})
	if err != nil {
		return fmt.Errorf("mark job %s started: %w", jobID, err)
	}
	return nil
}

// ReportComplete sends the final status of a job
func (c *Client) ReportComplete(ctx context.Context, report domain.CompletionReport) error {
	if err := c.postJSON(ctx, jobCompletePath, report); err != nil {
		return fmt.Errorf("report job %s %s: %w", report.JobID, report.Status, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("building webhook url: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrQueueUnavailable, err)
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	httpErr := &domain.HTTPError{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(snippet)) > 0 {
		httpErr.Err = errors.New(string(bytes.TrimSpace(snippet)))
	}
	return httpErr
}
