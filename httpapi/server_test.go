package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courier/auth"
	"courier/domain"
	"courier/repositories"
	"courier/runtime"
	"courier/search"
	"courier/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	server *Server
	index  *search.MessageIndex
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	req := require.New(t)
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := search.NewMessageIndex("", log)
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, log)
	notificationRepository := repositories.NewNotificationRepository(db, log)
	dispatcher := runtime.NewDispatcher(log, registry, messageRepository, notificationRepository, 16, nil)

	messaging := services.NewMessagingService(log, messageRepository, dispatcher, index, 4000)
	notifications := services.NewNotificationService(log, notificationRepository, dispatcher)

	token, err := auth.GenerateToken("u1", time.Hour)
	req.NoError(err)

	return &testServer{
		server: NewServer(log, messaging, notifications, NewStatsHandler(log, registry), time.Hour),
		index:  index,
		token:  token,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Authorization", "Bearer "+ts.token)
	w := httptest.NewRecorder()
	ts.server.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestServer_Login_Issues_Token(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"userId":"u1"}`))
	ts.server.ServeHTTP(w, r)

	req.Equal(http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	req.NotEmpty(body["token"])

	claims, err := auth.ValidateToken(body["token"])
	req.NoError(err)
	req.Equal("u1", claims.UserID)
}

func TestServer_Login_Requires_UserID(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{}`))
	ts.server.ServeHTTP(w, r)

	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Protected_Routes_Reject_Missing_Token(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/messages/user/u1", nil)
	ts.server.ServeHTTP(w, r)

	req.Equal(http.StatusUnauthorized, w.Code)
}

func TestServer_Send_And_Fetch_Conversation(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	// When two messages are sent
	w := ts.do(t, http.MethodPost, "/api/messages",
		map[string]string{"senderId": "u1", "receiverId": "u2", "content": "first"})
	req.Equal(http.StatusCreated, w.Code)
	first := decode[domain.Message](t, w)
	req.Equal("first", first.Content)
	req.False(first.Read)

	w = ts.do(t, http.MethodPost, "/api/messages",
		map[string]string{"senderId": "u2", "receiverId": "u1", "content": "second"})
	req.Equal(http.StatusCreated, w.Code)

	// Then the conversation reads oldest first, from either side
	w = ts.do(t, http.MethodGet, "/api/messages/conversation/u1/u2", nil)
	req.Equal(http.StatusOK, w.Code)
	body := decode[map[string][]domain.Message](t, w)
	req.Len(body["messages"], 2)
	req.Equal("first", body["messages"][0].Content)
	req.Equal("second", body["messages"][1].Content)
}

func TestServer_Send_Message_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing receiver", map[string]string{"senderId": "u1", "content": "hi"}},
		{"self addressed", map[string]string{"senderId": "u1", "receiverId": "u1", "content": "hi"}},
		{"blank content", map[string]string{"senderId": "u1", "receiverId": "u2", "content": "   "}},
	}
	ts := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/messages", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestServer_Conversations_One_Entry_Per_Partner(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	for _, m := range []map[string]string{
		{"senderId": "u2", "receiverId": "u1", "content": "from u2"},
		{"senderId": "u1", "receiverId": "u3", "content": "to u3"},
		{"senderId": "u2", "receiverId": "u1", "content": "again from u2"},
	} {
		w := ts.do(t, http.MethodPost, "/api/messages", m)
		req.Equal(http.StatusCreated, w.Code)
	}

	w := ts.do(t, http.MethodGet, "/api/messages/user/u1", nil)
	req.Equal(http.StatusOK, w.Code)
	body := decode[map[string][]domain.Conversation](t, w)
	req.Len(body["conversations"], 2)
	req.Equal("u2", body["conversations"][0].PartnerID)
	req.Equal("again from u2", body["conversations"][0].LastMessage.Content)
	req.Equal(2, body["conversations"][0].UnreadCount)
	req.Equal("u3", body["conversations"][1].PartnerID)
	req.Equal(0, body["conversations"][1].UnreadCount)
}

func TestServer_Mark_Message_Read(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/messages",
		map[string]string{"senderId": "u2", "receiverId": "u1", "content": "unread"})
	req.Equal(http.StatusCreated, w.Code)
	message := decode[domain.Message](t, w)

	w = ts.do(t, http.MethodPatch, fmt.Sprintf("/api/messages/%s/read", message.ID), nil)
	req.Equal(http.StatusOK, w.Code)
	marked := decode[domain.Message](t, w)
	req.True(marked.Read)

	// Unknown and malformed ids both map to 404
	w = ts.do(t, http.MethodPatch, "/api/messages/2b1f8e80-0000-0000-0000-000000000000/read", nil)
	req.Equal(http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPatch, "/api/messages/not-a-uuid/read", nil)
	req.Equal(http.StatusNotFound, w.Code)
}

func TestServer_Search_Messages(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/messages",
		map[string]string{"senderId": "u1", "receiverId": "u2", "content": "the deposit is due"})
	req.Equal(http.StatusCreated, w.Code)
	message := decode[domain.Message](t, w)

	// Indexing rides an async queue in production; feed it directly here
	req.NoError(ts.index.Index(message))

	w = ts.do(t, http.MethodGet, "/api/messages/search?q=deposit", nil)
	req.Equal(http.StatusOK, w.Code)
	body := decode[map[string][]domain.Message](t, w)
	req.Len(body["messages"], 1)
	req.Equal(message.ID, body["messages"][0].ID)

	// Empty query is a validation error
	w = ts.do(t, http.MethodGet, "/api/messages/search", nil)
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Notification_Lifecycle(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	// Create two notifications for u1
	w := ts.do(t, http.MethodPost, "/api/notifications", map[string]string{
		"recipientId": "u1", "type": "system", "title": "Maintenance", "body": "Back at noon."})
	req.Equal(http.StatusCreated, w.Code)
	created := decode[domain.Notification](t, w)

	w = ts.do(t, http.MethodPost, "/api/notifications", map[string]string{
		"recipientId": "u1", "type": "message", "title": "New message", "body": "From u2."})
	req.Equal(http.StatusCreated, w.Code)

	// Unread count reflects both
	w = ts.do(t, http.MethodGet, "/api/notifications/user/u1/unread-count", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Equal(2, decode[map[string]int](t, w)["unreadCount"])

	// Acknowledge one
	w = ts.do(t, http.MethodPut, fmt.Sprintf("/api/notifications/%s/read", created.ID), nil)
	req.Equal(http.StatusOK, w.Code)
	req.True(decode[domain.Notification](t, w).IsRead)

	w = ts.do(t, http.MethodGet, "/api/notifications/user/u1/unread-count", nil)
	req.Equal(1, decode[map[string]int](t, w)["unreadCount"])

	// Sweep the rest
	w = ts.do(t, http.MethodPut, "/api/notifications/user/u1/read-all", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Equal(1, decode[map[string]int](t, w)["modifiedCount"])

	// Delete one, then everything
	w = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/notifications/%s", created.ID), nil)
	req.Equal(http.StatusOK, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/notifications/user/u1/all", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Equal(1, decode[map[string]int](t, w)["deletedCount"])

	w = ts.do(t, http.MethodGet, "/api/notifications/user/u1", nil)
	req.Equal(http.StatusOK, w.Code)
	list := decode[map[string]any](t, w)
	req.Empty(list["notifications"])
}

func TestServer_Create_Notification_Rejects_Unknown_Type(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/notifications", map[string]string{
		"recipientId": "u1", "type": "fax", "title": "t", "body": "b"})
	req.Equal(http.StatusBadRequest, w.Code)
}

func TestServer_Debug_Stats(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/debug/stats", nil)
	req.Equal(http.StatusOK, w.Code)
	stats := decode[map[string]any](t, w)
	req.Contains(stats, "sessions")
	req.Contains(stats, "goroutines")
}
