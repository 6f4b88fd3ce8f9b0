// Package registry holds the in-memory authoritative state of the
// fan-out server: the set of live clients, their outbound delivery
// queues, and the room membership mapping. Every operation runs under a
// single mutex; broadcast is the hot path and naturally serializes, and
// the client and room maps must be mutated consistently.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/turbowire/turbowire/internal/v1/logging"
	"github.com/turbowire/turbowire/internal/v1/metrics"
	"github.com/turbowire/turbowire/internal/v1/queue"
)

// ClientID is the stable opaque identifier of one live wire connection.
type ClientID string

// Registry is the client and room state shared by the upgrade and
// broadcast endpoints.
type Registry struct {
	mu      sync.Mutex
	clients map[ClientID]*Outbox
	rooms   map[string][]ClientID
	queue   *queue.Service // nil when no list store is configured
}

// New creates an empty registry. q may be nil, disabling the offline
// queue fallback.
func New(q *queue.Service) *Registry {
	return &Registry{
		clients: make(map[ClientID]*Outbox),
		rooms:   make(map[string][]ClientID),
		queue:   q,
	}
}

// AddClient inserts a client's outbox. A duplicate id overwrites; the
// prior outbox is closed so its sender goroutine observes closure on the
// next read.
func (r *Registry) AddClient(id ClientID, out *Outbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addClientLocked(id, out)
}

// RemoveClient deletes a client's outbox. Room memberships are not
// swept here; the connection handler also calls LeaveRoom for the room
// it joined.
func (r *Registry) RemoveClient(id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeClientLocked(id)
}

// JoinRoom appends id to the room's membership if not already present,
// then drains the room's offline backlog, re-broadcasting each queued
// message. Backlog is delivered to whoever is in the room at the moment
// of each pop, not only to the joiner that triggered the drain.
func (r *Registry) JoinRoom(ctx context.Context, room string, id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joinRoomLocked(ctx, room, id)
}

// LeaveRoom removes id from the room's membership. The room entry is
// deleted when its membership becomes empty; empty rooms do not persist.
func (r *Registry) LeaveRoom(room string, id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveRoomLocked(room, id)
}

// Register inserts the client and joins it to room under one lock
// acquisition, as the connection handler's state machine requires.
func (r *Registry) Register(ctx context.Context, id ClientID, out *Outbox, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addClientLocked(id, out)
	r.joinRoomLocked(ctx, room, id)
}

// Deregister removes the client and its membership in room under one
// lock acquisition.
func (r *Registry) Deregister(room string, id ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeClientLocked(id)
	r.leaveRoomLocked(room, id)
}

// BroadcastToRoom fans message out to every current member of room.
// A broadcast to a room with no entry is parked in the offline queue.
// A per-member send failure (closed outbox, peer being torn down) parks
// the message once per failure; delivery errors never propagate.
func (r *Registry) BroadcastToRoom(ctx context.Context, room, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastToRoomLocked(ctx, room, message)
}

// ClientCount reports the number of live clients. Used by the upgrade
// endpoint's capacity gate.
func (r *Registry) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Counts reports the number of live clients and non-empty rooms.
func (r *Registry) Counts() (clients, rooms int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients), len(r.rooms)
}

// --- locked variants; caller must hold r.mu ---

func (r *Registry) addClientLocked(id ClientID, out *Outbox) {
	if prior, exists := r.clients[id]; exists {
		logging.Warn(context.Background(), "Duplicate client id, dropping prior outbox",
			zap.String("client_id", string(id)))
		prior.Close()
	}
	r.clients[id] = out
}

func (r *Registry) removeClientLocked(id ClientID) {
	delete(r.clients, id)
}

func (r *Registry) joinRoomLocked(ctx context.Context, room string, id ClientID) {
	members, exists := r.rooms[room]
	if !containsClient(members, id) {
		r.rooms[room] = append(members, id)
		logging.Info(ctx, "Client joined room",
			zap.String("room", room), zap.String("client_id", string(id)))
	}
	if !exists {
		metrics.ActiveRooms.Inc()
	}

	// Replay the offline backlog. The store I/O runs under the guard;
	// broadcast is already serialized by it and the store is expected to
	// be co-located.
	for {
		message, ok := r.queue.PopOne(ctx, room)
		if !ok {
			break
		}
		logging.Info(ctx, "Replaying queued message", zap.String("room", room))
		r.broadcastToRoomLocked(ctx, room, message)
	}
}

func (r *Registry) leaveRoomLocked(room string, id ClientID) {
	members, exists := r.rooms[room]
	if !exists {
		return
	}

	kept := members[:0]
	for _, m := range members {
		if m != id {
			kept = append(kept, m)
		}
	}

	if len(kept) == 0 {
		delete(r.rooms, room)
		metrics.ActiveRooms.Dec()
		logging.Info(context.Background(), "Room is empty, deleting", zap.String("room", room))
	} else {
		r.rooms[room] = kept
	}
	logging.Info(context.Background(), "Client left room",
		zap.String("room", room), zap.String("client_id", string(id)))
}

func (r *Registry) broadcastToRoomLocked(ctx context.Context, room, message string) {
	members, exists := r.rooms[room]
	if !exists {
		r.queue.Push(ctx, room, message)
		metrics.BroadcastsTotal.WithLabelValues("queued").Inc()
		return
	}

	for _, id := range members {
		out, ok := r.clients[id]
		if !ok {
			continue
		}
		if err := out.Send(message); err != nil {
			// Dead peer mid-teardown. Requeue so the offline-to-online
			// transition stays at-least-once; consumers tolerate duplicates.
			r.queue.Push(ctx, room, message)
			metrics.BroadcastsTotal.WithLabelValues("requeued").Inc()
			logging.Warn(ctx, "Failed to deliver to client, message requeued",
				zap.String("room", room), zap.String("client_id", string(id)), zap.Error(err))
			continue
		}
		metrics.BroadcastsTotal.WithLabelValues("delivered").Inc()
	}
}

func containsClient(members []ClientID, id ClientID) bool {
	for _, m := range members {
		if m == id {
			return true
		}
	}
	return false
}
