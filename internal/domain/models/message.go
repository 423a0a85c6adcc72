package models

import "time"

// MessageStatus records the delivery outcome of an outbound notification.
type MessageStatus string

const (
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
	MessageSkipped MessageStatus = "skipped"
)

// Message is one entry of the outbound notification log.
type Message struct {
	ID        string        `json:"id"`
	Channel   string        `json:"channel"`
	Recipient string        `json:"recipient"`
	Body      string        `json:"body"`
	Status    MessageStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}
