package services

import (
	"context"
	"log/slog"

	"courier/domain"
	"courier/errors"
	"courier/repositories"
	"courier/runtime"
	"courier/search"

	"github.com/google/uuid"
)

type IMessagingService interface {
	SendMessage(senderID, receiverID, content string) (domain.Message, error)
	GetConversation(userA, userB string) ([]domain.Message, error)
	ConversationsFor(userID string) ([]domain.Conversation, error)
	MarkRead(messageID uuid.UUID, readerID string) (domain.Message, error)
	Typing(senderID, receiverID string, isTyping bool)
	SearchMessages(ctx context.Context, userID, terms string, limit int) ([]domain.Message, error)
}

// MessagingService is the request/response side of the messaging subsystem.
// Validation happens before any write; delivery goes through the dispatcher
// so persistence always precedes push.
type MessagingService struct {
	log        *slog.Logger
	messages   repositories.IMessageRepository
	dispatcher *runtime.Dispatcher
	index      *search.MessageIndex
	maxContent int
}

func NewMessagingService(log *slog.Logger, messages repositories.IMessageRepository,
	dispatcher *runtime.Dispatcher, index *search.MessageIndex, maxContent int) *MessagingService {
	return &MessagingService{
		log:        log,
		messages:   messages,
		dispatcher: dispatcher,
		index:      index,
		maxContent: maxContent,
	}
}

// SendMessage validates, persists and pushes. The error reflects validation
// or persistence only: an unreachable receiver session is invisible to the
// sender, the message stays retrievable through the conversation fetch.
func (s *MessagingService) SendMessage(senderID, receiverID, content string) (domain.Message, error) {
	message, err := domain.NewMessage(senderID, receiverID, content)
	if err != nil {
		return domain.Message{}, err
	}
	if s.maxContent > 0 && len(message.Content) > s.maxContent {
		return domain.Message{}, errors.ErrContentTooLong
	}
	if err := s.dispatcher.DeliverMessage(message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetConversation returns all messages between the two users, oldest first.
func (s *MessagingService) GetConversation(userA, userB string) ([]domain.Message, error) {
	if userA == "" || userB == "" {
		return nil, errors.ErrMissingField
	}
	return s.messages.GetConversation(userA, userB)
}

// ConversationsFor derives the inbox: one entry per distinct partner with
// the latest exchanged message, most recent first. One pass over the
// messages involving the user; no per-pair re-query.
func (s *MessagingService) ConversationsFor(userID string) ([]domain.Conversation, error) {
	if userID == "" {
		return nil, errors.ErrMissingField
	}
	newestFirst, err := s.messages.MessagesInvolving(userID)
	if err != nil {
		return nil, err
	}
	return domain.AggregateConversations(userID, newestFirst), nil
}

// MarkRead acknowledges a message explicitly. Fetching never flips the
// flag; this is the single authoritative trigger.
func (s *MessagingService) MarkRead(messageID uuid.UUID, readerID string) (domain.Message, error) {
	return s.dispatcher.AcknowledgeRead(messageID, readerID)
}

// Typing relays the ephemeral indicator; nothing to persist, nothing to
// fail.
func (s *MessagingService) Typing(senderID, receiverID string, isTyping bool) {
	if senderID == "" || receiverID == "" {
		return
	}
	s.dispatcher.RelayTyping(senderID, receiverID, isTyping)
}

// SearchMessages queries the full-text index then hydrates hits from the
// store. Indexing is asynchronous, so a hit deleted meanwhile is skipped
// rather than failing the search.
func (s *MessagingService) SearchMessages(ctx context.Context, userID, terms string, limit int) ([]domain.Message, error) {
	if userID == "" || terms == "" {
		return nil, errors.ErrMissingField
	}
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.index.Search(ctx, userID, terms, limit)
	if err != nil {
		return nil, err
	}
	results := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		message, err := s.messages.GetMessage(id)
		if err == errors.ErrMessageNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, message)
	}
	return results, nil
}
