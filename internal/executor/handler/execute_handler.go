package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/tool-sidecar/internal/executor/dto"
	"github.com/cuongbtq/tool-sidecar/internal/executor/storage"
)

const recordTimeout = 2 * time.Second

// Health handles GET /health
// The service stays "ok" when the history database is down; only the
// history field degrades.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:      "ok",
		Tool:        h.tool.Name(),
		Version:     h.version,
		Environment: h.environment,
		History:     h.historyStatus(c.Request.Context()),
		Timestamp:   h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) historyStatus(ctx context.Context) string {
	if h.history == nil {
		return HistoryDisabled
	}
	if err := h.history.HealthCheck(ctx); err != nil {
		h.logger.Warn("History database unhealthy", slog.String("error", err.Error()))
		return HistoryUnavailable
	}
	return HistoryOK
}

// Execute handles POST /execute
// Any tool failure, including a panic, is answered with HTTP 200 and
// success:false. Only a malformed body is rejected with 400.
func (h *Handler) Execute(c *gin.Context) {
	var req dto.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}
	if req.Input == nil {
		h.logger.Error("Invalid request body", slog.String("error", "input is missing"))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	logger := h.logger.With(slog.String("request_id", c.GetString(RequestIDKey)))

	// A disconnected caller does not abort the tool; each step has its own timeout
	start := h.now()
	result, err := h.runTool(context.WithoutCancel(c.Request.Context()), logger, req.Input)
	elapsed := h.now().Sub(start)

	resp := dto.ExecuteResponse{ExecutionTime: elapsed.Seconds()}
	if err != nil {
		message := err.Error()
		resp.Error = &message
		logger.Warn("Tool execution failed",
			slog.String("tool", h.tool.Name()),
			slog.Duration("duration", elapsed),
			slog.String("error", message),
		)
	} else {
		resp.Success = true
		resp.Result = result
		logger.Info("Tool execution completed",
			slog.String("tool", h.tool.Name()),
			slog.Duration("duration", elapsed),
		)
	}

	h.record(c, logger, req.Input, resp, start, elapsed)

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) runTool(ctx context.Context, logger *slog.Logger, input map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Tool panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result = nil
			err = fmt.Errorf("internal tool error: %v", r)
		}
	}()

	return h.tool.Execute(ctx, input)
}

func (h *Handler) record(c *gin.Context, logger *slog.Logger, input map[string]any, resp dto.ExecuteResponse, start time.Time, elapsed time.Duration) {
	url, _ := input["url"].(string)
	mode, _ := input["mode"].(string)

	exec := &storage.Execution{
		ID:         uuid.NewString(),
		RequestID:  c.GetString(RequestIDKey),
		Tool:       h.tool.Name(),
		URL:        url,
		Mode:       mode,
		Success:    resp.Success,
		Error:      resp.Error,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  start.UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), recordTimeout)
	defer cancel()

	if err := h.recorder.Record(ctx, exec); err != nil {
		logger.Error("Failed to record execution",
			slog.String("execution_id", exec.ID),
			slog.String("error", err.Error()),
		)
	}
}
