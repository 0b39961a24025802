package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mentor-chat-service/internal/models"
	"mentor-chat-service/internal/repositories"
)

// Rapid repeated sends from the same sender to the same recipient inside this
// window are merged into the previous row instead of creating chat spam.
const coalesceWindow = 4 * time.Second

// Action describes what the coalescer did with an incoming message.
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
)

// Coalescer applies the dedup/merge policy before any write reaches the
// store. Callers must serialize concurrent calls for the same ordered
// (sender, receiver) pair; see PairLocks.
type Coalescer struct {
	messages repositories.MessageRepository
	now      func() time.Time
}

// NewCoalescer constructs a Coalescer using the wall clock.
func NewCoalescer(messages repositories.MessageRepository) *Coalescer {
	return &Coalescer{messages: messages, now: time.Now}
}

// Coalesce inserts, updates or skips the incoming message. The window is
// directional: a recent B->A message never dedupes an A->B send. Text must
// already be trimmed and non-empty (dispatcher contract).
//
// The window comparison always uses the created_at the store returned with
// the previous row, so engine/store clock skew cannot accumulate across
// calls.
func (c *Coalescer) Coalesce(ctx context.Context, senderID, receiverID, text string) (Action, models.Message, error) {
	last, err := c.messages.LatestFrom(ctx, senderID, receiverID)
	if err != nil && !errors.Is(err, repositories.ErrMessageNotFound) {
		return "", models.Message{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	fresh := err == nil && c.now().Sub(last.CreatedAt) < coalesceWindow
	if !fresh {
		msg, err := c.messages.Create(ctx, senderID, receiverID, text)
		if err != nil {
			return "", models.Message{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return ActionInserted, msg, nil
	}

	if strings.TrimSpace(last.Message) == text {
		// Idempotent resend; every client still reconciles to this row.
		return ActionSkipped, last, nil
	}

	msg, err := c.messages.UpdateContent(ctx, last.ID, text)
	if err != nil {
		return "", models.Message{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ActionUpdated, msg, nil
}
