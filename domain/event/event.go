// Package event defines the events pushed over the live channel. They are
// addressed to a single user and fan out to every session that user has
// open; none of them carries delivery guarantees, durability comes from the
// stores.
package event

import (
	"courier/domain"

	"github.com/google/uuid"
)

// LiveEvent is anything the dispatcher can push to a session.
type LiveEvent interface {
	// Name is the wire event name seen by clients.
	Name() string
	// TargetID is the user whose sessions receive the event.
	TargetID() string
}

// NewMessage carries a full persisted message to the receiver's sessions.
type NewMessage struct {
	Message domain.Message
}

func (e NewMessage) Name() string     { return "new-message" }
func (e NewMessage) TargetID() string { return e.Message.ReceiverID }

// MessageRead tells the original sender that the receiver acknowledged a
// message. Relayed only to the sender's sessions, never broadcast.
type MessageRead struct {
	MessageID uuid.UUID `json:"messageId"`
	ReadBy    string    `json:"readBy"`
	SenderID  string    `json:"-"`
}

func (e MessageRead) Name() string     { return "message-read" }
func (e MessageRead) TargetID() string { return e.SenderID }

// UserTyping is the ephemeral typing indicator. Not persisted, safe to
// replay, expires client-side.
type UserTyping struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"-"`
	IsTyping   bool   `json:"isTyping"`
}

func (e UserTyping) Name() string     { return "user-typing" }
func (e UserTyping) TargetID() string { return e.ReceiverID }

// NotificationCreated is the lightweight summary pushed alongside a stored
// notification.
type NotificationCreated struct {
	ID          uuid.UUID               `json:"id"`
	RecipientID string                  `json:"-"`
	Type        domain.NotificationType `json:"type"`
	Title       string                  `json:"title"`
	Link        string                  `json:"link,omitempty"`
}

func (e NotificationCreated) Name() string     { return "notification" }
func (e NotificationCreated) TargetID() string { return e.RecipientID }
