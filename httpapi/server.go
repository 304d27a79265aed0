// Package httpapi exposes the request/response surface of the messaging
// and notification subsystem.
package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"courier/auth"
	"courier/domain"
	"courier/errors"
	"courier/services"

	"github.com/google/uuid"
)

// Server wires the REST routes. The websocket endpoint is mounted by the
// caller next to this mux.
type Server struct {
	log           *slog.Logger
	messaging     services.IMessagingService
	notifications services.INotificationService
	stats         *StatsHandler
	tokenTTL      time.Duration
	mux           *http.ServeMux
}

func NewServer(log *slog.Logger, messaging services.IMessagingService,
	notifications services.INotificationService, stats *StatsHandler,
	tokenTTL time.Duration) *Server {
	s := &Server{
		log:           log,
		messaging:     messaging,
		notifications: notifications,
		stats:         stats,
		tokenTTL:      tokenTTL,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Dev token endpoint, public. Real deployments front this with the
	// platform's identity service.
	s.mux.HandleFunc("POST /login", s.handleLogin)

	protected := func(h http.HandlerFunc) http.Handler { return AuthMiddleware(h) }

	s.mux.Handle("POST /api/messages", protected(s.handleSendMessage))
	s.mux.Handle("GET /api/messages/conversation/{userA}/{userB}", protected(s.handleGetConversation))
	s.mux.Handle("GET /api/messages/user/{userId}", protected(s.handleGetConversations))
	s.mux.Handle("GET /api/messages/search", protected(s.handleSearchMessages))
	s.mux.Handle("PATCH /api/messages/{id}/read", protected(s.handleMarkMessageRead))

	s.mux.Handle("POST /api/notifications", protected(s.handleCreateNotification))
	s.mux.Handle("GET /api/notifications/user/{userId}", protected(s.handleListNotifications))
	s.mux.Handle("GET /api/notifications/user/{userId}/unread-count", protected(s.handleUnreadCount))
	s.mux.Handle("PUT /api/notifications/user/{userId}/read-all", protected(s.handleMarkAllRead))
	s.mux.Handle("DELETE /api/notifications/user/{userId}/all", protected(s.handleDeleteAll))
	s.mux.Handle("PUT /api/notifications/{id}/read", protected(s.handleMarkNotificationRead))
	s.mux.Handle("DELETE /api/notifications/{id}", protected(s.handleDeleteNotification))

	if s.stats != nil {
		s.mux.Handle("GET /debug/stats", s.stats)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	CORSMiddleware(s.mux).ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Debug("Encoding response failed", "error", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: validation 400,
// unknown ids 404, everything else (persistence) 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, errors.ErrMissingField),
		stderrors.Is(err, errors.ErrEmptyContent),
		stderrors.Is(err, errors.ErrContentTooLong),
		stderrors.Is(err, errors.ErrSelfAddressed),
		stderrors.Is(err, errors.ErrInvalidType):
		status = http.StatusBadRequest
	case stderrors.Is(err, errors.ErrMessageNotFound),
		stderrors.Is(err, errors.ErrNotificationNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("Request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrMissingField)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, errors.ErrMissingField)
		return
	}
	token, err := auth.GenerateToken(req.UserID, s.tokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrMissingField)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, errors.ErrMissingField)
		return
	}
	message, err := s.messaging.SendMessage(req.SenderID, req.ReceiverID, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, message)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	messages, err := s.messaging.GetConversation(r.PathValue("userA"), r.PathValue("userB"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleGetConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.messaging.ConversationsFor(r.PathValue("userId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (s *Server) handleSearchMessages(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := s.messaging.SearchMessages(r.Context(), claims.UserID, r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleMarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, errors.ErrMessageNotFound)
		return
	}
	claims := claimsFrom(r)
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	message, err := s.messaging.MarkRead(id, claims.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, message)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ErrMissingField)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.writeError(w, errors.ErrMissingField)
		return
	}
	n, err := s.notifications.Create(services.CreateNotificationParams{
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        domain.NotificationType(req.Type),
		Title:       req.Title,
		Body:        req.Body,
		Link:        req.Link,
		RelatedID:   req.RelatedID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"

	notifications, err := s.notifications.List(r.PathValue("userId"), limit, unreadOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(notifications),
		"notifications": notifications,
	})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.notifications.UnreadCount(r.PathValue("userId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	modified, err := s.notifications.MarkAllRead(r.PathValue("userId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"modifiedCount": modified})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.notifications.DeleteAll(r.PathValue("userId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"deletedCount": deleted})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, errors.ErrNotificationNotFound)
		return
	}
	n, err := s.notifications.MarkRead(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, errors.ErrNotificationNotFound)
		return
	}
	if err := s.notifications.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "notification deleted"})
}
