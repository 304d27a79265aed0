package services

import (
	"log/slog"

	"courier/domain"
	"courier/repositories"
	"courier/runtime"

	"github.com/google/uuid"
)

type INotificationService interface {
	Publish(e domain.PlatformEvent) (domain.Notification, error)
	Create(params CreateNotificationParams) (domain.Notification, error)
	List(recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error)
	UnreadCount(recipientID string) (int, error)
	MarkRead(id uuid.UUID) (domain.Notification, error)
	MarkAllRead(recipientID string) (int, error)
	Delete(id uuid.UUID) error
	DeleteAll(recipientID string) (int, error)
}

// CreateNotificationParams is the direct-creation input used by trusted
// collaborators; platform events should go through Publish instead so the
// template mapping stays in one place.
type CreateNotificationParams struct {
	RecipientID string
	SenderID    string
	Type        domain.NotificationType
	Title       string
	Body        string
	Link        string
	RelatedID   string
}

// NotificationService is the only writer of notification rows. Every
// creation path funnels into the dispatcher, preserving persist-then-push.
type NotificationService struct {
	log           *slog.Logger
	notifications repositories.INotificationRepository
	dispatcher    *runtime.Dispatcher
}

func NewNotificationService(log *slog.Logger, notifications repositories.INotificationRepository,
	dispatcher *runtime.Dispatcher) *NotificationService {
	return &NotificationService{log: log, notifications: notifications, dispatcher: dispatcher}
}

// Publish maps a platform event to exactly one notification and delivers
// it. This is the hook collaborators call; the match over event variants is
// exhaustive in the domain package.
func (s *NotificationService) Publish(e domain.PlatformEvent) (domain.Notification, error) {
	n, err := domain.FromPlatformEvent(e)
	if err != nil {
		return domain.Notification{}, err
	}
	if err := s.dispatcher.DeliverNotification(n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (s *NotificationService) Create(params CreateNotificationParams) (domain.Notification, error) {
	n, err := domain.NewNotification(params.RecipientID, params.Type, params.Title, params.Body)
	if err != nil {
		return domain.Notification{}, err
	}
	n.SenderID = params.SenderID
	n.Link = params.Link
	n.RelatedID = params.RelatedID
	if err := s.dispatcher.DeliverNotification(n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (s *NotificationService) List(recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error) {
	return s.notifications.ListNotifications(recipientID, limit, unreadOnly)
}

func (s *NotificationService) UnreadCount(recipientID string) (int, error) {
	return s.notifications.UnreadCount(recipientID)
}

func (s *NotificationService) MarkRead(id uuid.UUID) (domain.Notification, error) {
	return s.notifications.MarkNotificationRead(id)
}

func (s *NotificationService) MarkAllRead(recipientID string) (int, error) {
	return s.notifications.MarkAllRead(recipientID)
}

func (s *NotificationService) Delete(id uuid.UUID) error {
	return s.notifications.DeleteNotification(id)
}

func (s *NotificationService) DeleteAll(recipientID string) (int, error) {
	return s.notifications.DeleteAll(recipientID)
}
