package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/chess-arena/internal/obslog"
)

const writeTimeout = 5 * time.Second

// client is one live connection. Writes are serialized by a per-client
// mutex; broadcasts arrive from other connections' goroutines.
type client struct {
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
}

func (c *client) send(event string, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, outEnvelope{Event: event, Payload: payload})
}

// Hub tracks live connections and their room membership, and implements
// Sender over them. Send failures are logged and left to the failing
// connection's own read loop to surface.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]*client),
	}
}

func (h *Hub) add(connID string, conn *websocket.Conn) *client {
	c := &client{id: connID, conn: conn}
	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()
	return c
}

// Bind records room membership. The dispatcher calls it at join, before
// delivering the join's own effects.
func (h *Hub) Bind(connID, roomID string) {
	if roomID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*client)
		h.rooms[roomID] = members
	}
	members[connID] = c
}

func (h *Hub) remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
	for roomID, members := range h.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// SendTo delivers one event to a single connection. Unknown ids are
// dropped: the target may have disconnected between effect computation and
// delivery.
func (h *Hub) SendTo(connID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := c.send(event, payload); err != nil {
		obslog.L().Warn("send_error", zap.String("conn_id", connID), zap.String("event", event), zap.Error(err))
	}
}

// Broadcast delivers one event to every member of a room.
func (h *Hub) Broadcast(roomID, event string, payload any) {
	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if err := c.send(event, payload); err != nil {
			obslog.L().Warn("broadcast_error",
				zap.String("room_id", roomID),
				zap.String("conn_id", c.id),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}
