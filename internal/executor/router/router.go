package router

import (
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/tool-sidecar/internal/executor/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	h := handler.New(deps)

	// GET /health - Tool identity and liveness
	r.GET("/health", h.Health)

	// POST /execute - Run the configured tool
	r.POST("/execute", h.Execute)

	// GET /executions - Recorded execution history
	r.GET("/executions", h.ListExecutions)

	return r
}
