package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is immutable once stored. Timestamp is the creation time.
type Message struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SenderID  uuid.UUID `db:"sender_id" json:"sender_id"`
	Subject   *string   `db:"subject" json:"subject"`
	Content   string    `db:"content" json:"content"`
	Timestamp time.Time `db:"created_at" json:"timestamp"`
}

// Delivery pairs a message with one recipient and tracks that recipient's read state.
// ReadAt is set if and only if Read is true.
type Delivery struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	MessageID   uuid.UUID  `db:"message_id" json:"message_id"`
	RecipientID uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	Read        bool       `db:"is_read" json:"read"`
	ReadAt      *time.Time `db:"read_at" json:"read_at"`
}

// RecipientInfo is the per-recipient state attached to a sent view.
type RecipientInfo struct {
	RecipientID uuid.UUID  `json:"recipient_id"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at"`
}

// SentMessageView is a message annotated with every delivery it fanned out to.
type SentMessageView struct {
	Message
	Recipients []RecipientInfo `json:"recipients"`
}

// InboxMessageView is a message as seen by one recipient: only that
// recipient's delivery state is present.
type InboxMessageView struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	DeliveryID uuid.UUID  `db:"delivery_id" json:"delivery_id"`
	SenderID   uuid.UUID  `db:"sender_id" json:"sender_id"`
	Subject    *string    `db:"subject" json:"subject"`
	Content    string     `db:"content" json:"content"`
	Timestamp  time.Time  `db:"created_at" json:"timestamp"`
	Read       bool       `db:"is_read" json:"read"`
	ReadAt     *time.Time `db:"read_at" json:"read_at"`
}
