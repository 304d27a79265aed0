package httpapi

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type sendMessageRequest struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

type createNotificationRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	SenderID    string `json:"senderId"`
	Type        string `json:"type" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Body        string `json:"body" validate:"required"`
	Link        string `json:"link"`
	RelatedID   string `json:"relatedId"`
}

type tokenRequest struct {
	UserID string `json:"userId" validate:"required"`
}
