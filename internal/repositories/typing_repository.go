package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"mentor-chat-service/internal/models"
)

// TypingRepository persists last-write-wins typing state per directed pair.
type TypingRepository interface {
	Upsert(ctx context.Context, status models.TypingStatus) error
}

// TypingRepo is a sqlx implementation of TypingRepository.
type TypingRepo struct {
	db *sqlx.DB
}

// NewTypingRepo constructs a TypingRepo.
func NewTypingRepo(db *sqlx.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

// Upsert stores the latest typing state for the pair.
func (r *TypingRepo) Upsert(ctx context.Context, status models.TypingStatus) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO typing_status (from_id, to_id, is_typing, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (from_id, to_id) DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = NOW()`,
		status.FromID, status.ToID, status.IsTyping)
	return err
}
