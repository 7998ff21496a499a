package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/tool-sidecar/internal/executor/dto"
	"github.com/cuongbtq/tool-sidecar/internal/executor/storage"
)

// ListExecutions handles GET /executions
// Lists recorded executions, newest first, with cursor pagination
func (h *Handler) ListExecutions(c *gin.Context) {
	var req dto.ListExecutionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	var success *bool
	switch req.Status {
	case "":
	case "success":
		v := true
		success = &v
	case "failed":
		v := false
		success = &v
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "status must be success or failed",
		})
		return
	}

	cursor, err := DecodeExecutionCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	executions, err := h.recorder.List(c.Request.Context(), storage.ExecutionFilter{
		Tool:     req.Tool,
		Success:  success,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list executions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list executions",
		})
		return
	}

	hasMore := len(executions) > req.PageSize
	if hasMore {
		executions = executions[:req.PageSize]
	}

	items := make([]dto.ExecutionDTO, len(executions))
	for i, e := range executions {
		items[i] = dto.ExecutionDTO{
			ID:         e.ID,
			RequestID:  e.RequestID,
			Tool:       e.Tool,
			URL:        e.URL,
			Mode:       e.Mode,
			Success:    e.Success,
			Error:      e.Error,
			DurationMs: e.DurationMs,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		last := executions[len(executions)-1]
		nextCursor = EncodeExecutionCursor(&storage.ExecutionCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListExecutionsResponse{
		Executions: items,
		NextCursor: nextCursor,
	})
}
