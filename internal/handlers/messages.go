package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mentor-chat-service/internal/delivery"
	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/repositories"
)

// MessageHandler owns the synchronous request entry path over the shared
// delivery engine.
type MessageHandler struct {
	dispatcher  *delivery.Dispatcher
	typing      *delivery.TypingSynchronizer
	seen        *delivery.SeenSynchronizer
	authorizer  *delivery.Authorizer
	messageRepo repositories.MessageRepository
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(dispatcher *delivery.Dispatcher, typing *delivery.TypingSynchronizer, seen *delivery.SeenSynchronizer, authorizer *delivery.Authorizer, messageRepo repositories.MessageRepository) *MessageHandler {
	return &MessageHandler{
		dispatcher:  dispatcher,
		typing:      typing,
		seen:        seen,
		authorizer:  authorizer,
		messageRepo: messageRepo,
	}
}

// PostMessage delivers a message through the dispatcher and returns the
// canonical stored row.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req struct {
		ReceiverID string `json:"receiver_id"`
		Message    string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing receiver_id or message"})
		return
	}

	userID := c.GetString("userID")
	role := c.GetString("accountType")

	res, err := h.dispatcher.Deliver(c.Request.Context(), userID, role, req.ReceiverID, req.Message)
	if err != nil {
		status, msg := errorResponse(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	status := http.StatusOK
	if res.Action == delivery.ActionInserted {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"ok": true, "action": string(res.Action), "row": res.Message})
}

// GetMessages returns the deduplicated conversation with the other user,
// oldest first, for an authorized pair.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	otherID := c.Param("other_id")
	userID := c.GetString("userID")
	role := c.GetString("accountType")

	if err := h.authorizer.Authorize(c.Request.Context(), userID, role, otherID); err != nil {
		status, msg := errorResponse(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	msgs, err := h.messageRepo.ListBetween(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dedupeMessages(msgs)})
}

// PostTyping records and forwards a typing toggle.
func (h *MessageHandler) PostTyping(c *gin.Context) {
	var req struct {
		ToID     string `json:"to_id"`
		IsTyping bool   `json:"is_typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing to_id"})
		return
	}

	userID := c.GetString("userID")
	if err := h.typing.SetTyping(c.Request.Context(), userID, req.ToID, req.IsTyping); err != nil {
		status, msg := errorResponse(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MarkSeen flips read receipts for everything the caller received from the
// other user.
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	otherID := c.Param("other_id")
	userID := c.GetString("userID")

	updated, err := h.seen.MarkSeen(c.Request.Context(), userID, otherID)
	if err != nil {
		status, msg := errorResponse(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "updated": updated})
}

// dedupeMessages drops rows repeating an already-seen (created_at, sender,
// receiver, text) tuple, preserving order.
func dedupeMessages(msgs []models.Message) []models.Message {
	type msgKey struct {
		createdAt time.Time
		sender    string
		receiver  string
		text      string
	}

	seen := make(map[msgKey]struct{}, len(msgs))
	unique := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		key := msgKey{m.CreatedAt, m.SenderID, m.ReceiverID, m.Message}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, m)
	}
	return unique
}

func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, delivery.ErrInvalidInput):
		return http.StatusBadRequest, "missing fields"
	case errors.Is(err, delivery.ErrForbidden):
		return http.StatusForbidden, "not authorized"
	default:
		return http.StatusBadGateway, "temporarily unavailable"
	}
}
