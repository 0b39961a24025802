package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"mentor-chat-service/internal/delivery"
	"mentor-chat-service/internal/middleware"
	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/observability"
)

const inboundTimeout = 10 * time.Second

// ChatWebSocketHandler owns the persistent-connection entry path. Every
// inbound event maps 1:1 onto the same dispatcher and synchronizers the HTTP
// handlers use.
type ChatWebSocketHandler struct {
	hub        *Hub
	dispatcher *delivery.Dispatcher
	typing     *delivery.TypingSynchronizer
	seen       *delivery.SeenSynchronizer
	jwtSecret  string
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, dispatcher *delivery.Dispatcher, typing *delivery.TypingSynchronizer, seen *delivery.SeenSynchronizer, jwtSecret string) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{
		hub:        hub,
		dispatcher: dispatcher,
		typing:     typing,
		seen:       seen,
		jwtSecret:  jwtSecret,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundEvent is the envelope clients send over the socket.
type inboundEvent struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiver_id,omitempty"`
	Message    string `json:"message,omitempty"`
	ToID       string `json:"to_id,omitempty"`
	IsTyping   bool   `json:"is_typing,omitempty"`
	OtherID    string `json:"other_id,omitempty"`
}

type sendAck struct {
	OK     bool            `json:"ok"`
	Action string          `json:"action"`
	Row    *models.Message `json:"row"`
}

type typingAck struct {
	OK bool `json:"ok"`
}

type markSeenAck struct {
	OK      bool  `json:"ok"`
	Updated int64 `json:"updated"`
}

type connectedPayload struct {
	OK     bool   `json:"ok"`
	UserID string `json:"user_id"`
}

// Handle authenticates, upgrades the connection and joins the user's room,
// then serves inbound events until the connection closes.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("mentor-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID, role := claims.UserID, claims.AccountType

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Join(userID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, info, "ws_connect", "")

	_ = h.hub.Send(userID, conn, models.ChatEvent{
		Type:    "connected",
		Payload: connectedPayload{OK: true, UserID: userID},
	})

	// The request context is canceled when Handle returns; the read loop
	// outlives it, so it runs detached (values preserved, cancellation not).
	go h.readLoop(context.WithoutCancel(ctx), conn, userID, role, info)
}

func (h *ChatWebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, userID, role string, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Leave(userID, conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, info, "ws_error", closeReason)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			h.sendError(userID, conn, "malformed event")
			continue
		}
		h.handleEvent(ctx, conn, userID, role, event)
	}
}

func (h *ChatWebSocketHandler) handleEvent(ctx context.Context, conn *websocket.Conn, userID, role string, event inboundEvent) {
	opCtx, cancel := context.WithTimeout(ctx, inboundTimeout)
	defer cancel()

	switch event.Type {
	case "send_message":
		res, err := h.dispatcher.Deliver(opCtx, userID, role, event.ReceiverID, event.Message)
		if err != nil {
			h.sendError(userID, conn, errorMessage(err))
			return
		}
		observability.IncWSEvent("send_message")
		_ = h.hub.Send(userID, conn, models.ChatEvent{
			Type:    "send_ack",
			Payload: sendAck{OK: true, Action: string(res.Action), Row: &res.Message},
		})

	case "typing":
		if err := h.typing.SetTyping(opCtx, userID, event.ToID, event.IsTyping); err != nil {
			h.sendError(userID, conn, errorMessage(err))
			return
		}
		observability.IncWSEvent("typing")
		_ = h.hub.Send(userID, conn, models.ChatEvent{Type: "typing_ack", Payload: typingAck{OK: true}})

	case "mark_seen":
		updated, err := h.seen.MarkSeen(opCtx, userID, event.OtherID)
		if err != nil {
			h.sendError(userID, conn, errorMessage(err))
			return
		}
		observability.IncWSEvent("mark_seen")
		_ = h.hub.Send(userID, conn, models.ChatEvent{
			Type:    "mark_seen_ack",
			Payload: markSeenAck{OK: true, Updated: updated},
		})

	default:
		h.sendError(userID, conn, "unknown event type")
	}
}

func (h *ChatWebSocketHandler) sendError(userID string, conn *websocket.Conn, msg string) {
	_ = h.hub.Send(userID, conn, models.ChatEvent{Type: "error", Error: msg})
}

func (h *ChatWebSocketHandler) publishLifecycle(ctx context.Context, info ConnInfo, event, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.chats", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, delivery.ErrInvalidInput):
		return "missing fields"
	case errors.Is(err, delivery.ErrForbidden):
		return "not authorized"
	default:
		return "temporarily unavailable"
	}
}
