package delivery

import (
	"context"
	"fmt"

	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/repositories"
)

// SeenSynchronizer marks received messages as seen and notifies their sender.
type SeenSynchronizer struct {
	messages repositories.MessageRepository
	hub      Broadcaster
}

// NewSeenSynchronizer constructs a SeenSynchronizer.
func NewSeenSynchronizer(messages repositories.MessageRepository, hub Broadcaster) *SeenSynchronizer {
	return &SeenSynchronizer{messages: messages, hub: hub}
}

// MarkSeen flips seen=true on every unseen message the viewer received from
// the other user and reports the number of rows that changed. Zero is a
// valid result; repeated calls are idempotent. The messages_seen event goes
// to the other user's room so their clients can update read receipts.
func (s *SeenSynchronizer) MarkSeen(ctx context.Context, viewerID, otherID string) (int64, error) {
	if viewerID == "" || otherID == "" {
		return 0, ErrInvalidInput
	}

	updated, err := s.messages.MarkSeen(ctx, viewerID, otherID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.hub.Broadcast(otherID, models.ChatEvent{
		Type:    "messages_seen",
		Payload: models.SeenUpdate{By: viewerID, OtherID: otherID},
	})
	return updated, nil
}
