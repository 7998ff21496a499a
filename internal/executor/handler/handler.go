package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/tool-sidecar/internal/executor/storage"
	"github.com/cuongbtq/tool-sidecar/internal/executor/tool"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "request_id"

// History status values reported by GET /health
const (
	HistoryDisabled    = "disabled"
	HistoryOK          = "ok"
	HistoryUnavailable = "unavailable"
)

// HealthChecker reports whether the history database is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Tool        tool.Tool
	Recorder    storage.ExecutionRecorder
	History     HealthChecker
	Version     string
	Environment string
}

// Handler serves the executor endpoints
type Handler struct {
	logger      *slog.Logger
	tool        tool.Tool
	recorder    storage.ExecutionRecorder
	history     HealthChecker
	version     string
	environment string
	now         func() time.Time
}

// New creates a Handler. A nil recorder disables execution history; a nil
// History checker reports history as disabled.
func New(deps *Dependencies) *Handler {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = storage.NopRecorder{}
	}

	return &Handler{
		logger:      deps.Logger,
		tool:        deps.Tool,
		recorder:    recorder,
		history:     deps.History,
		version:     deps.Version,
		environment: deps.Environment,
		now:         time.Now,
	}
}
