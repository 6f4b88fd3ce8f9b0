package wire

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/metrics"
	"github.com/turbowire/turbowire/internal/v1/registry"
)

const writeWait = 10 * time.Second

// initialPingPayload is the probe sent immediately after upgrade.
var initialPingPayload = []byte{0x01}

// handleWire runs the connection state machine: probe, register, split
// into sender and receiver, and guaranteed cleanup. It returns when the
// connection is torn down.
func (h *Hub) handleWire(conn wsConnection, id registry.ClientID, room string) {
	ctx := context.WithValue(context.Background(), logging.RoomKey, room)
	ctx = context.WithValue(ctx, logging.ClientIDKey, string(id))
	remote := conn.RemoteAddr().String()

	// Probing: one ping to kick things off. If we cannot send, there is
	// nothing to salvage; the client was never registered.
	if err := conn.WriteControl(websocket.PingMessage, initialPingPayload, time.Now().Add(writeWait)); err != nil {
		logging.Warn(ctx, "Could not send initial ping", zap.String("remote", remote), zap.Error(err))
		_ = conn.Close()
		return
	}
	logging.Info(ctx, "Wire connected", zap.String("remote", remote))

	conn.SetPingHandler(func(appData string) error {
		// The frame layer answers pings itself; mirror that here since a
		// custom handler replaces the default.
		logging.Info(ctx, "Client sent ping", zap.Int("bytes", len(appData)))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(appData string) error {
		logging.Info(ctx, "Client sent pong", zap.Int("bytes", len(appData)))
		return nil
	})

	// Registering: the outbox sender side moves into the registry, then
	// the room join runs under the same guard.
	out := registry.NewOutbox()
	h.registry.Register(ctx, id, out, room)
	h.trackConn(id, conn)
	metrics.IncConnection()

	senderDone := make(chan struct{})
	receiverDone := make(chan struct{})

	// Sender: drains the outbox to the socket. Any write error
	// terminates it.
	go func() {
		defer close(senderDone)
		for {
			frame, ok := out.Receive()
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				logging.Warn(ctx, "Wire write failed", zap.Error(err))
				return
			}
		}
	}()

	// Receiver: reads frames and processes them. Any read error or close
	// frame terminates it.
	go func() {
		defer close(receiverDone)
		h.receiveLoop(ctx, conn, id, room)
	}()

	// Closing: either side terminating aborts the other. No graceful
	// drain of the outbox.
	select {
	case <-senderDone:
	case <-receiverDone:
	}
	out.Close()
	_ = conn.Close()
	<-senderDone
	<-receiverDone

	h.untrackConn(id)
	h.registry.Deregister(room, id)
	metrics.DecConnection()
	logging.Info(ctx, "Wire destroyed", zap.String("remote", remote))
}

// receiveLoop pumps inbound frames until the socket errors or the
// client sends a close frame.
func (h *Hub) receiveLoop(ctx context.Context, conn wsConnection, id registry.ClientID, room string) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				logging.Info(ctx, "Client sent close frame",
					zap.Int("code", closeErr.Code), zap.String("reason", closeErr.Text))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			logging.Info(ctx, "Client sent text frame", zap.Int("bytes", len(data)))
			// Inbound text is not broadcast; publication goes through the
			// authenticated broadcast endpoint only.
			h.webhook.Deliver(ctx, room, string(id), string(data))
		case websocket.BinaryMessage:
			logging.Info(ctx, "Client sent binary frame", zap.Int("bytes", len(data)))
		}
	}
}
