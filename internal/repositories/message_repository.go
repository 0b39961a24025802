package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"mentor-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for mentor-student messages.
type MessageRepository interface {
	Create(ctx context.Context, senderID, receiverID, text string) (models.Message, error)
	LatestFrom(ctx context.Context, senderID, receiverID string) (models.Message, error)
	UpdateContent(ctx context.Context, messageID int, text string) (models.Message, error)
	MarkSeen(ctx context.Context, viewerID, otherID string) (int64, error)
	ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a new message row. created_at is assigned by the store.
func (r *MessageRepo) Create(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, message) VALUES ($1, $2, $3)
        RETURNING id, sender_id, receiver_id, message, seen, created_at`, senderID, receiverID, text).
		StructScan(&msg)
	return msg, err
}

// LatestFrom returns the most recent message in the sender->receiver direction.
func (r *MessageRepo) LatestFrom(ctx context.Context, senderID, receiverID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, sender_id, receiver_id, message, seen, created_at
        FROM messages WHERE sender_id=$1 AND receiver_id=$2
        ORDER BY created_at DESC LIMIT 1`, senderID, receiverID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateContent overwrites a message's text and refreshes its created_at,
// returning the row as stored.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages SET message=$2, created_at=NOW() WHERE id=$1
        RETURNING id, sender_id, receiver_id, message, seen, created_at`, messageID, text).
		StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkSeen flips seen=true on every unseen message the viewer received from
// the other user and reports how many rows changed.
func (r *MessageRepo) MarkSeen(ctx context.Context, viewerID, otherID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET seen = TRUE
        WHERE receiver_id=$1 AND sender_id=$2 AND seen = FALSE`, viewerID, otherID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListBetween returns the conversation between two users in both directions,
// oldest first.
func (r *MessageRepo) ListBetween(ctx context.Context, userID, otherID string) ([]models.Message, error) {
	query := `SELECT id, sender_id, receiver_id, message, seen, created_at
        FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY created_at ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, userID, otherID)
	return msgs, err
}
