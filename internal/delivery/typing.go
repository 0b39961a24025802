package delivery

import (
	"context"
	"fmt"

	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/repositories"
)

// TypingSynchronizer persists typing state and pushes it to the recipient.
// No coalescing window applies: typing is latest-wins and every toggle is
// delivered.
type TypingSynchronizer struct {
	typing repositories.TypingRepository
	hub    Broadcaster
}

// NewTypingSynchronizer constructs a TypingSynchronizer.
func NewTypingSynchronizer(typing repositories.TypingRepository, hub Broadcaster) *TypingSynchronizer {
	return &TypingSynchronizer{typing: typing, hub: hub}
}

// SetTyping upserts the (from, to) typing row and broadcasts a typing_update
// to the recipient's room only, never back to the sender's own room. On a
// store failure nothing is broadcast.
func (t *TypingSynchronizer) SetTyping(ctx context.Context, fromID, toID string, isTyping bool) error {
	if fromID == "" || toID == "" {
		return ErrInvalidInput
	}

	status := models.TypingStatus{FromID: fromID, ToID: toID, IsTyping: isTyping}
	if err := t.typing.Upsert(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	t.hub.Broadcast(toID, models.ChatEvent{
		Type:    "typing_update",
		Payload: models.TypingUpdate{FromID: fromID, ToID: toID, IsTyping: isTyping},
	})
	return nil
}
