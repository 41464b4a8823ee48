package models

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderBot      Sender = "bot"
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
)

// MessageKind distinguishes orchestration messages from free conversation.
type MessageKind string

const (
	KindText    MessageKind = "text"
	KindCatalog MessageKind = "catalog"
	KindMenu    MessageKind = "menu"
	KindSystem  MessageKind = "system"
)

// Message is a single immutable turn in a session's ordered log.
// Seq is strictly increasing within a session; insertion order is
// chronological order.
type Message struct {
	ID        int64       `json:"id" db:"id"`
	SessionID int64       `json:"sessionId" db:"session_id"`
	Sender    Sender      `json:"sender" db:"sender"`
	Content   string      `json:"content" db:"content"`
	Kind      MessageKind `json:"kind" db:"kind"`
	Seq       int         `json:"seq" db:"seq"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
}
