// Package health serves the liveness and gauge endpoints.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/queue"
	"github.com/turbowire/turbowire/internal/v1/registry"
)

// Handler serves /health and /stats.
type Handler struct {
	queue    *queue.Service
	registry *registry.Registry
}

// NewHandler creates a health handler. queueService may be nil.
func NewHandler(queueService *queue.Service, reg *registry.Registry) *Handler {
	return &Handler{queue: queueService, registry: reg}
}

// Health is the liveness probe. It always reports healthy; the offline
// queue degrading to memory-only semantics is not a liveness failure,
// but unreachability is logged for operators.
func (h *Handler) Health(c *gin.Context) {
	if err := h.queue.Ping(c.Request.Context()); err != nil {
		logging.Warn(c.Request.Context(), "Offline queue store unreachable", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"status": "all good!"})
}

// Stats reports the live connection and room gauges from the registry.
func (h *Handler) Stats(c *gin.Context) {
	connections, rooms := h.registry.Counts()
	c.JSON(http.StatusOK, gin.H{
		"connections": connections,
		"rooms":       rooms,
	})
}
