// Package api implements the authenticated HTTP surface: the broadcast
// fan-out endpoint and the signed-URL mint endpoint.
package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/config"
	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/registry"
	"github.com/turbowire/turbowire/internal/v1/signature"
)

// BroadcastRequest is the body of POST /broadcast.
type BroadcastRequest struct {
	Message string `json:"message"`
	Room    string `json:"room"`
}

// SignWireRequest is the body of POST /sign-wire.
type SignWireRequest struct {
	Room string `json:"room"`
}

// Handler serves the broadcast and mint endpoints.
type Handler struct {
	registry     *registry.Registry
	signingKey   string
	broadcastKey string
	baseURL      string
}

// NewHandler creates a Handler bound to the registry and the configured
// secrets.
func NewHandler(cfg *config.Config, reg *registry.Registry) *Handler {
	return &Handler{
		registry:     reg,
		signingKey:   cfg.SigningKey,
		broadcastKey: cfg.BroadcastKey,
		baseURL:      cfg.BaseURL,
	}
}

// Broadcast fans a message out to every live member of the named room.
// The endpoint always returns 200 once authorization passes; per-member
// delivery failures never surface here.
func (h *Handler) Broadcast(c *gin.Context) {
	key := c.GetHeader("x-broadcast-key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(h.broadcastKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid broadcast key"})
		return
	}

	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	logging.Info(c.Request.Context(), "Broadcasting message", zap.String("room", req.Room))
	h.registry.BroadcastToRoom(c.Request.Context(), req.Room, req.Message)

	c.JSON(http.StatusOK, gin.H{"message": "Broadcasted"})
}

// SignWire mints a signed wire URL for the requested room. The caller
// must present the signing key itself in the x-api-key header.
func (h *Handler) SignWire(c *gin.Context) {
	apiKey := c.GetHeader("x-api-key")
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(h.signingKey)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	var req SignWireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !signature.ValidRoomName(req.Room) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room name must contain only alphanumeric characters and hyphens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signed_url": signature.SignedURL(h.baseURL, h.signingKey, req.Room),
	})
}
