package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/observability"
)

// Hub maintains the room of live websocket connections per user. A user may
// hold any number of simultaneous connections (multi-device); a room with no
// connections does not exist.
type Hub struct {
	rooms map[string]map[*websocket.Conn]*client
	mu    sync.RWMutex
}

// client couples a connection with its metadata and a write lock, since
// broadcasts and acks may target the same connection concurrently.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	info ConnInfo
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*websocket.Conn]*client)}
}

// Join registers a websocket connection under a user's room. Joining twice
// with the same connection is a no-op.
func (h *Hub) Join(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[userID]; !ok {
		h.rooms[userID] = make(map[*websocket.Conn]*client)
	}
	if _, ok := h.rooms[userID][conn]; !ok {
		h.rooms[userID][conn] = &client{conn: conn, info: info}
	}
}

// Leave removes a connection from a user's room. Leaving a connection that
// is not present is a no-op.
func (h *Hub) Leave(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, userID)
		}
	}
}

// RoomSize reports how many connections a user currently holds.
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Broadcast sends the event to every live connection in the user's room.
// With no connections registered the event is dropped; delivery is
// best-effort and at-most-once.
func (h *Hub) Broadcast(userID string, event models.ChatEvent) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[userID]))
	for _, cl := range h.rooms[userID] {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			cl.conn.Close()
			h.Leave(userID, cl.conn)
			h.publishWSError(cl.info, err)
		}
	}
}

// Send delivers an event to one specific connection in the user's room,
// typically an acknowledgment for an inbound event.
func (h *Hub) Send(userID string, conn *websocket.Conn, event models.ChatEvent) error {
	h.mu.RLock()
	cl, ok := h.rooms[userID][conn]
	h.mu.RUnlock()
	if !ok {
		return errors.New("connection not registered")
	}

	payload, _ := json.Marshal(event)
	if err := cl.write(payload); err != nil {
		log.Printf("websocket write error: %v", err)
		cl.conn.Close()
		h.Leave(userID, conn)
		h.publishWSError(cl.info, err)
		return err
	}
	return nil
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
