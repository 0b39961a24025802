package models

import "time"

// Message represents a direct message between a mentor and a student.
type Message struct {
	ID         int       `db:"id" json:"id"`
	SenderID   string    `db:"sender_id" json:"sender_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	Message    string    `db:"message" json:"message"`
	Seen       bool      `db:"seen" json:"seen"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is broadcasted through websockets.
type ChatEvent struct {
	Type    string      `json:"type"`
	Message *Message    `json:"message,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// TypingUpdate is the payload of a typing_update event.
type TypingUpdate struct {
	FromID   string `json:"from_id"`
	ToID     string `json:"to_id"`
	IsTyping bool   `json:"is_typing"`
}

// SeenUpdate is the payload of a messages_seen event.
type SeenUpdate struct {
	By      string `json:"by"`
	OtherID string `json:"other_id"`
}
