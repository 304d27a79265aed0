package domain

import (
	"time"

	"courier/errors"

	"github.com/google/uuid"
)

// NotificationType is the closed set of notification kinds. Anything not
// listed here is rejected at creation time.
type NotificationType string

const (
	TypeMessage              NotificationType = "message"
	TypeApplicationSubmitted NotificationType = "application-submitted"
	TypeApplicationAccepted  NotificationType = "application-accepted"
	TypeApplicationRejected  NotificationType = "application-rejected"
	TypeNewReview            NotificationType = "new-review"
	TypeListingApproved      NotificationType = "listing-approved"
	TypeListingRejected      NotificationType = "listing-rejected"
	TypeVerification         NotificationType = "verification"
	TypeReport               NotificationType = "report"
	TypeSystem               NotificationType = "system"
)

var notificationTypes = map[NotificationType]struct{}{
	TypeMessage:              {},
	TypeApplicationSubmitted: {},
	TypeApplicationAccepted:  {},
	TypeApplicationRejected:  {},
	TypeNewReview:            {},
	TypeListingApproved:      {},
	TypeListingRejected:      {},
	TypeVerification:         {},
	TypeReport:               {},
	TypeSystem:               {},
}

// Valid reports whether t belongs to the closed set.
func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// Notification is one stored per-recipient system event.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID string           `json:"recipientId"`
	SenderID    string           `json:"senderId,omitempty"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	Link        string           `json:"link,omitempty"`
	RelatedID   string           `json:"relatedId,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NewNotification builds a validated, unread notification.
func NewNotification(recipientID string, kind NotificationType, title, body string) (Notification, error) {
	if recipientID == "" || title == "" || body == "" {
		return Notification{}, errors.ErrMissingField
	}
	if !kind.Valid() {
		return Notification{}, errors.ErrInvalidType
	}
	return Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        kind,
		Title:       title,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
