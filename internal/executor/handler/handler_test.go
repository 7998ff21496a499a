package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/tool-sidecar/internal/executor/domain"
	"github.com/cuongbtq/tool-sidecar/internal/executor/storage"
	"github.com/cuongbtq/tool-sidecar/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTool struct {
	execute func(ctx context.Context, input map[string]any) (any, error)
}

func (t *fakeTool) Name() string { return "fake-tool" }

func (t *fakeTool) Execute(ctx context.Context, input map[string]any) (any, error) {
	return t.execute(ctx, input)
}

type fakeRecorder struct {
	mu         sync.Mutex
	records    []*storage.Execution
	recordErr  error
	executions []storage.Execution
	filters    []storage.ExecutionFilter
	listErr    error
}

func (r *fakeRecorder) Record(_ context.Context, exec *storage.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, exec)
	return r.recordErr
}

func (r *fakeRecorder) List(_ context.Context, filter storage.ExecutionFilter) ([]storage.Execution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, filter)
	return r.executions, r.listErr
}

func newTestEngine(tl *fakeTool, rec storage.ExecutionRecorder) *gin.Engine {
	h := New(&Dependencies{
		Logger:      logger.NewDiscard().Logger,
		Tool:        tl,
		Recorder:    rec,
		Version:     "1.2.3",
		Environment: "test",
	})
	h.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(RequestIDKey, "req-1")
		c.Next()
	})
	r.GET("/health", h.Health)
	r.POST("/execute", h.Execute)
	r.GET("/executions", h.ListExecutions)
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	r := newTestEngine(&fakeTool{}, nil)

	w := doRequest(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{
		"status":      "ok",
		"tool":        "fake-tool",
		"version":     "1.2.3",
		"environment": "test",
		"history":     "disabled",
		"timestamp":   "2026-10-14T12:00:00Z",
	}, decodeBody(t, w))
}

type fakeHealthChecker struct {
	err error
}

func (f fakeHealthChecker) HealthCheck(context.Context) error { return f.err }

func TestHealth_HistoryStatus(t *testing.T) {
	tests := []struct {
		name    string
		checker HealthChecker
		want    string
	}{
		{name: "disabled", checker: nil, want: HistoryDisabled},
		{name: "reachable", checker: fakeHealthChecker{}, want: HistoryOK},
		{name: "unreachable", checker: fakeHealthChecker{err: errors.New("database health check failed: dial tcp: refused")}, want: HistoryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&Dependencies{
				Logger:  logger.NewDiscard().Logger,
				Tool:    &fakeTool{},
				History: tt.checker,
			})
			r := gin.New()
			r.GET("/health", h.Health)

			w := doRequest(r, http.MethodGet, "/health", "")
			require.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, tt.want, body["history"])
		})
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		execute  func(ctx context.Context, input map[string]any) (any, error)
		wantCode int
		wantBody map[string]any
	}{
		{
			name: "success",
			body: `{"input":{"url":"https://example.com","mode":"quick"}}`,
			execute: func(_ context.Context, input map[string]any) (any, error) {
				return map[string]any{"content": "# Content Analysis", "url": input["url"]}, nil
			},
			wantCode: http.StatusOK,
			wantBody: map[string]any{
				"success":        true,
				"result":         map[string]any{"content": "# Content Analysis", "url": "https://example.com"},
				"error":          nil,
				"execution_time": float64(0),
			},
		},
		{
			name: "tool error keeps http 200",
			body: `{"input":{}}`,
			execute: func(context.Context, map[string]any) (any, error) {
				return nil, domain.ErrURLRequired
			},
			wantCode: http.StatusOK,
			wantBody: map[string]any{
				"success":        false,
				"result":         nil,
				"error":          "URL is required",
				"execution_time": float64(0),
			},
		},
		{
			name: "tool panic keeps http 200",
			body: `{"input":{"url":"https://example.com"}}`,
			execute: func(context.Context, map[string]any) (any, error) {
				panic("nil map write")
			},
			wantCode: http.StatusOK,
			wantBody: map[string]any{
				"success":        false,
				"result":         nil,
				"error":          "internal tool error: nil map write",
				"execution_time": float64(0),
			},
		},
		{
			name:     "malformed json",
			body:     `{"input":`,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]any{"success": false, "error": "Invalid request body"},
		},
		{
			name:     "missing input",
			body:     `{"url":"https://example.com"}`,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]any{"success": false, "error": "Invalid request body"},
		},
		{
			name:     "input is not an object",
			body:     `{"input":"https://example.com"}`,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]any{"success": false, "error": "Invalid request body"},
		},
		{
			name:     "empty body",
			body:     ``,
			wantCode: http.StatusBadRequest,
			wantBody: map[string]any{"success": false, "error": "Invalid request body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := &fakeTool{execute: tt.execute}
			if tl.execute == nil {
				tl.execute = func(context.Context, map[string]any) (any, error) {
					t.Fatal("tool must not run for a rejected request")
					return nil, nil
				}
			}
			r := newTestEngine(tl, nil)

			w := doRequest(r, http.MethodPost, "/execute", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantBody, decodeBody(t, w))
		})
	}
}

func TestExecute_CallerCancellationDoesNotReachTool(t *testing.T) {
	var toolCtxErr error
	tl := &fakeTool{execute: func(ctx context.Context, _ map[string]any) (any, error) {
		toolCtxErr = ctx.Err()
		return "done", nil
	}}
	r := newTestEngine(tl, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(`{"input":{"url":"https://example.com"}}`)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, toolCtxErr)
	assert.Equal(t, true, decodeBody(t, w)["success"])
}

func TestExecute_RecordsExecution(t *testing.T) {
	rec := &fakeRecorder{}
	tl := &fakeTool{execute: func(context.Context, map[string]any) (any, error) {
		return nil, errors.New("failed to fetch content: HTTP 503")
	}}
	r := newTestEngine(tl, rec)

	w := doRequest(r, http.MethodPost, "/execute", `{"input":{"url":"https://example.com","mode":"deep"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, rec.records, 1)
	got := rec.records[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "fake-tool", got.Tool)
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, "deep", got.Mode)
	assert.False(t, got.Success)
	require.NotNil(t, got.Error)
	assert.Equal(t, "failed to fetch content: HTTP 503", *got.Error)
}

func TestExecute_RecorderFailureDoesNotChangeResponse(t *testing.T) {
	rec := &fakeRecorder{recordErr: errors.New("connection reset")}
	tl := &fakeTool{execute: func(context.Context, map[string]any) (any, error) {
		return "done", nil
	}}
	r := newTestEngine(tl, rec)

	w := doRequest(r, http.MethodPost, "/execute", `{"input":{}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "done", body["result"])
}

func TestListExecutions(t *testing.T) {
	created := time.Date(2026, 10, 14, 11, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{executions: []storage.Execution{
		{ID: "e3", Tool: "url-analyzer", URL: "https://a", Success: true, CreatedAt: created},
		{ID: "e2", Tool: "url-analyzer", URL: "https://b", Success: true, CreatedAt: created.Add(-time.Minute)},
		{ID: "e1", Tool: "url-analyzer", URL: "https://c", Success: true, CreatedAt: created.Add(-2 * time.Minute)},
	}}
	r := newTestEngine(&fakeTool{}, rec)

	w := doRequest(r, http.MethodGet, "/executions?page_size=2&status=success&tool=url-analyzer", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Executions []map[string]any `json:"executions"`
		NextCursor string           `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Executions, 2)
	assert.Equal(t, "e3", resp.Executions[0]["id"])
	assert.Equal(t, "2026-10-14T11:00:00Z", resp.Executions[0]["created_at"])

	cursor, err := DecodeExecutionCursor(resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "e2", cursor.ID)
	assert.True(t, cursor.CreatedAt.Equal(created.Add(-time.Minute)))

	require.Len(t, rec.filters, 1)
	f := rec.filters[0]
	assert.Equal(t, "url-analyzer", f.Tool)
	assert.Equal(t, 2, f.PageSize)
	require.NotNil(t, f.Success)
	assert.True(t, *f.Success)
	assert.Nil(t, f.Cursor)
}

func TestListExecutions_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "bad status", query: "?status=pending"},
		{name: "bad cursor", query: "?cursor=%21%21"},
		{name: "bad page size", query: "?page_size=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine(&fakeTool{}, &fakeRecorder{})
			w := doRequest(r, http.MethodGet, "/executions"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListExecutions_HistoryDisabled(t *testing.T) {
	r := newTestEngine(&fakeTool{}, nil)

	w := doRequest(r, http.MethodGet, "/executions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"executions": []any{}}, decodeBody(t, w))
}
