package delivery

import (
	"context"
	"strings"

	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/observability"
)

// Broadcaster is the presence registry surface the engine fans out through.
// Delivery to rooms with no live connections is dropped, not queued.
type Broadcaster interface {
	Broadcast(userID string, event models.ChatEvent)
}

// Result reports a completed delivery.
type Result struct {
	Action  Action
	Message models.Message
}

// Dispatcher orchestrates authorize -> coalesce -> persist -> broadcast. The
// HTTP handlers and the websocket read loop invoke the same instance, so both
// entry paths share one set of semantics.
type Dispatcher struct {
	authorizer *Authorizer
	coalescer  *Coalescer
	hub        Broadcaster
	pairs      *PairLocks
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(authorizer *Authorizer, coalescer *Coalescer, hub Broadcaster) *Dispatcher {
	return &Dispatcher{
		authorizer: authorizer,
		coalescer:  coalescer,
		hub:        hub,
		pairs:      NewPairLocks(),
	}
}

// Deliver validates, authorizes, coalesces and broadcasts one message. On a
// skipped duplicate the unchanged row is still broadcast so every connected
// client of both parties converges on the same canonical state; that
// broadcast doubles as the synchronous path's acknowledgment. On any error
// no broadcast happens at all.
func (d *Dispatcher) Deliver(ctx context.Context, senderID, senderRole, receiverID, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if senderID == "" || receiverID == "" || text == "" {
		observability.IncDeliveryOutcome("invalid")
		return Result{}, ErrInvalidInput
	}

	if err := d.authorizer.Authorize(ctx, senderID, senderRole, receiverID); err != nil {
		if err == ErrForbidden {
			observability.IncDeliveryOutcome("forbidden")
		} else {
			observability.IncDeliveryOutcome("store_error")
		}
		return Result{}, err
	}

	unlock := d.pairs.Lock(senderID, receiverID)
	action, msg, err := d.coalescer.Coalesce(ctx, senderID, receiverID, text)
	unlock()
	if err != nil {
		observability.IncDeliveryOutcome("store_error")
		return Result{}, err
	}
	observability.IncDeliveryOutcome(string(action))

	event := models.ChatEvent{Type: "new_message", Message: &msg}
	d.hub.Broadcast(msg.ReceiverID, event)
	d.hub.Broadcast(msg.SenderID, event)

	return Result{Action: action, Message: msg}, nil
}
