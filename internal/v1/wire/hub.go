// Package wire implements the upgrade endpoint and the per-connection
// lifecycle of the framed message stream.
package wire

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/config"
	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/registry"
	"github.com/turbowire/turbowire/internal/v1/signature"
	"github.com/turbowire/turbowire/internal/v1/webhook"
)

// wsConnection defines the interface for frame socket operations.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	RemoteAddr() net.Addr
	Close() error
}

// Hub admits wire connections and runs their lifecycle against the
// registry.
type Hub struct {
	registry        *registry.Registry
	webhook         *webhook.Client
	signingKey      string
	connectionLimit int
	upgrader        websocket.Upgrader

	mu    sync.Mutex
	conns map[registry.ClientID]wsConnection
}

// NewHub creates a Hub wired to the registry and the optional webhook
// client.
func NewHub(cfg *config.Config, reg *registry.Registry, wh *webhook.Client) *Hub {
	return &Hub{
		registry:        reg,
		webhook:         wh,
		signingKey:      cfg.SigningKey,
		connectionLimit: cfg.ConnectionLimit,
		upgrader: websocket.Upgrader{
			// Any origin may connect after presenting a valid signature.
			CheckOrigin: func(r *http.Request) bool { return true },
			WriteBufferPool: &sync.Pool{
				New: func() any {
					return make([]byte, 4096)
				},
			},
		},
		conns: make(map[registry.ClientID]wsConnection),
	}
}

// ServeWire verifies the signed URL, checks capacity, and upgrades the
// request to a wire connection. The handler blocks for the lifetime of
// the connection.
func (h *Hub) ServeWire(c *gin.Context) {
	room := c.Query("room")
	sig := c.Query("signature")

	if !signature.Verify(h.signingKey, room, sig) {
		logging.Warn(c.Request.Context(), "Rejected wire with invalid signature",
			zap.String("room", room), zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	// The capacity check and the later registration are not atomic; a
	// small transient overshoot under contention is accepted.
	if h.registry.ClientCount() >= h.connectionLimit {
		c.String(http.StatusServiceUnavailable, "Connection limit reached")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "Failed to upgrade connection", zap.Error(err))
		return
	}

	id := registry.ClientID(uuid.NewString())
	h.handleWire(conn, id, room)
}

// Shutdown aborts all live connections. Pending outbound frames are
// discarded and no close frames are sent.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	conns := make([]wsConnection, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}

	logging.Info(ctx, "All wire connections closed", zap.Int("count", len(conns)))
	return nil
}

func (h *Hub) trackConn(id registry.ClientID, conn wsConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = conn
}

func (h *Hub) untrackConn(id registry.ClientID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}
