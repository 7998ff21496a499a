// Package toolclient calls the executor service over HTTP.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/domain"
)

// HealthStatus is the executor's /health response
type HealthStatus struct {
	Status      string `json:"status"`
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	History     string `json:"history,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type executeRequest struct {
	Input map[string]any `json:"input"`
}

type executeResponse struct {
	Success bool    `json:"success"`
	Result  any     `json:"result"`
	Error   *string `json:"error"`
}

// Client is an HTTP client for the executor service
type Client struct {
	baseURL        string
	httpClient     *http.Client
	executeTimeout time.Duration
	healthTimeout  time.Duration
}

// NewClient creates an executor client
func NewClient(baseURL string, httpClient *http.Client, executeTimeout, healthTimeout time.Duration) *Client {
	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		executeTimeout: executeTimeout,
		healthTimeout:  healthTimeout,
	}
}

// Health queries the executor's health endpoint
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	endpoint, err := url.JoinPath(c.baseURL, "health")
	if err != nil {
		return nil, fmt.Errorf("building health url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check: %w", &domain.HTTPError{StatusCode: resp.StatusCode})
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("health check: decoding response: %w", err)
	}

	return &status, nil
}

// Execute runs the tool with input. It never returns a Go error: every
// failure to complete the attempt is folded into an unsuccessful result
// whose message says why.
func (c *Client) Execute(ctx context.Context, input map[string]any) domain.ExecutionResult {
	result, err := c.execute(ctx, input)
	if err != nil {
		return domain.ExecutionResult{Success: false, Error: describe(err)}
	}
	return result
}

func (c *Client) execute(ctx context.Context, input map[string]any) (domain.ExecutionResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, "execute")
	if err != nil {
		return domain.ExecutionResult{}, &unexpectedError{err: err}
	}

	body, err := json.Marshal(executeRequest{Input: input})
	if err != nil {
		return domain.ExecutionResult{}, &unexpectedError{err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.executeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.ExecutionResult{}, &unexpectedError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		httpErr := &domain.HTTPError{StatusCode: resp.StatusCode}
		if trimmed := bytes.TrimSpace(snippet); len(trimmed) > 0 {
			httpErr.Err = errors.New(string(trimmed))
		}
		return domain.ExecutionResult{}, httpErr
	}

	var decoded executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		if isTimeout(err) {
			return domain.ExecutionResult{}, err
		}
		return domain.ExecutionResult{}, &unexpectedError{err: fmt.Errorf("decoding execute response: %w", err)}
	}

	if decoded.Success {
		return domain.ExecutionResult{Success: true, Result: decoded.Result}, nil
	}

	message := "Unknown error"
	if decoded.Error != nil && *decoded.Error != "" {
		message = *decoded.Error
	}
	return domain.ExecutionResult{Success: false, Error: message}, nil
}

// unexpectedError marks failures that are neither transport nor HTTP errors
type unexpectedError struct {
	err error
}

func (e *unexpectedError) Error() string { return e.err.Error() }
func (e *unexpectedError) Unwrap() error { return e.err }

func describe(err error) string {
	var unexpected *unexpectedError
	switch {
	case isTimeout(err):
		return "Execution timed out"
	case errors.As(err, &unexpected):
		return fmt.Sprintf("Unexpected error: %v", unexpected.err)
	default:
		return fmt.Sprintf("API error: %v", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
