package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/gin-gonic/gin"
)

const (
	ServiceName    = "Group Change Params API"
	ServiceVersion = "1.0.0"
)

// SystemHandler 服务信息与健康检查
type SystemHandler struct {
	query *service.QueryService
}

func NewSystemHandler(query *service.QueryService) *SystemHandler {
	return &SystemHandler{query: query}
}

// Root GET /
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     ServiceName,
		"status":      "running",
		"version":     ServiceVersion,
		"description": "API for group parameter changes in orders",
	})
}

// Health GET /api/health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status, database := "healthy", "connected"
	if err := h.query.Ping(ctx); err != nil {
		status, database = "unhealthy", "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": database,
		"service":  ServiceName,
	})
}
