package dto

// ExecuteRequest is the body of POST /execute
type ExecuteRequest struct {
	Input map[string]any `json:"input"`
}

// ExecuteResponse is always returned with HTTP 200 for a well-formed request.
// Result and Error are serialized as null when absent.
type ExecuteResponse struct {
	Success       bool    `json:"success"`
	Result        any     `json:"result"`
	Error         *string `json:"error"`
	ExecutionTime float64 `json:"execution_time"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	History     string `json:"history"`
	Timestamp   string `json:"timestamp"`
}

type ListExecutionsRequest struct {
	Tool     string `form:"tool"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListExecutionsResponse struct {
	Executions []ExecutionDTO `json:"executions"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type ExecutionDTO struct {
	ID         string  `json:"id"`
	RequestID  string  `json:"request_id"`
	Tool       string  `json:"tool"`
	URL        string  `json:"url"`
	Mode       string  `json:"mode"`
	Success    bool    `json:"success"`
	Error      *string `json:"error,omitempty"`
	DurationMs int64   `json:"duration_ms"`
	CreatedAt  string  `json:"created_at"`
}
