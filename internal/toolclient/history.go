package toolclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/domain"
	"github.com/cuongbtq/tool-sidecar/internal/executor/dto"
)

// HistoryQuery filters GET /executions
type HistoryQuery struct {
	Tool     string
	Status   string
	PageSize int
	Cursor   string
}

func (q HistoryQuery) values() url.Values {
	v := url.Values{}
	if q.Tool != "" {
		v.Set("tool", q.Tool)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	return v
}

// ListExecutions fetches one page of recorded executions
func (c *Client) ListExecutions(ctx context.Context, q HistoryQuery) (*dto.ListExecutionsResponse, error) {
	endpoint, err := url.JoinPath(c.baseURL, "executions")
	if err != nil {
		return nil, fmt.Errorf("building executions url: %w", err)
	}
	if encoded := q.values().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building executions request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list executions: %w", &domain.HTTPError{StatusCode: resp.StatusCode})
	}

	var page dto.ListExecutionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("list executions: decoding response: %w", err)
	}

	return &page, nil
}
