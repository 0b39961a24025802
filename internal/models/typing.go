package models

import "time"

// TypingStatus tracks last-write-wins typing state per directed pair.
type TypingStatus struct {
	FromID    string    `db:"from_id" json:"from_id"`
	ToID      string    `db:"to_id" json:"to_id"`
	IsTyping  bool      `db:"is_typing" json:"is_typing"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
