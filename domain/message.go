// Package domain contains the core concepts of the messaging subsystem.
// Messages are immutable once persisted, except for the read flag which is
// flipped exactly once by an explicit acknowledgement.
package domain

import (
	"strings"
	"time"

	"courier/errors"

	"github.com/google/uuid"
)

// Message is one person-to-person message.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	Read       bool      `json:"read"`
}

// NewMessage builds a validated, unread message. Content is trimmed; an
// empty or self-addressed message is rejected before anything is written.
func NewMessage(senderID, receiverID, content string) (Message, error) {
	if senderID == "" || receiverID == "" {
		return Message{}, errors.ErrMissingField
	}
	if senderID == receiverID {
		return Message{}, errors.ErrSelfAddressed
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, errors.ErrEmptyContent
	}
	return Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Involves reports whether userID is one of the two participants.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// PartnerOf returns the other participant from userID's point of view.
func (m Message) PartnerOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
