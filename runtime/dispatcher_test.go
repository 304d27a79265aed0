package runtime

import (
	"log/slog"
	"testing"

	"courier/domain"
	"courier/domain/event"
	"courier/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, bufferSize int, indexQueue chan domain.Message) (*Dispatcher, *Registry, *badger.DB) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	registry := NewRegistry()
	dispatcher := NewDispatcher(log, registry,
		repositories.NewMessageRepository(db, log),
		repositories.NewNotificationRepository(db, log),
		bufferSize, indexQueue)
	return dispatcher, registry, db
}

func mustMessage(t *testing.T, sender, receiver, content string) domain.Message {
	t.Helper()
	message, err := domain.NewMessage(sender, receiver, content)
	require.NoError(t, err)
	return message
}

func TestDispatcher_Offline_Receiver_Still_Persists(t *testing.T) {
	req := require.New(t)
	dispatcher, _, db := newTestDispatcher(t, 8, nil)

	// Given u2 has no live session
	message := mustMessage(t, "u1", "u2", "Hello")

	// When the message is delivered
	req.NoError(dispatcher.DeliverMessage(message))

	// Then nothing was queued for push
	req.Empty(dispatcher.jobs)

	// And the message is retrievable on the next connect
	log := slog.Default()
	stored, err := repositories.NewMessageRepository(db, log).GetConversation("u1", "u2")
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal("Hello", stored[0].Content)
}

func TestDispatcher_Online_Receiver_Gets_One_Job(t *testing.T) {
	req := require.New(t)
	dispatcher, registry, _ := newTestDispatcher(t, 8, nil)

	receiverSink := &Sink{}
	senderSink := &Sink{}
	registry.Register("u2", receiverSink)
	registry.Register("u1", senderSink)

	message := mustMessage(t, "u1", "u2", "Hello")
	req.NoError(dispatcher.DeliverMessage(message))

	// Then exactly one job targets the receiver's session only
	req.Len(dispatcher.jobs, 1)
	job := <-dispatcher.jobs
	evt, ok := job.Event.(event.NewMessage)
	req.True(ok)
	req.Equal(message.ID, evt.Message.ID)
	req.Equal("u2", job.Event.TargetID())
	req.Len(job.Sinks, 1)
	req.Contains(job.Sinks, receiverSink)
}

func TestDispatcher_AcknowledgeRead_Notifies_Sender_Only(t *testing.T) {
	req := require.New(t)
	dispatcher, registry, _ := newTestDispatcher(t, 8, nil)

	senderSink := &Sink{}
	registry.Register("u1", senderSink)

	message := mustMessage(t, "u1", "u2", "Hello")
	req.NoError(dispatcher.DeliverMessage(message))

	marked, err := dispatcher.AcknowledgeRead(message.ID, "u2")
	req.NoError(err)
	req.True(marked.Read)

	req.Len(dispatcher.jobs, 1)
	job := <-dispatcher.jobs
	evt, ok := job.Event.(event.MessageRead)
	req.True(ok)
	req.Equal(message.ID, evt.MessageID)
	req.Equal("u2", evt.ReadBy)
	req.Equal("u1", job.Event.TargetID())

	// Acknowledging again reaches the same terminal state without error
	again, err := dispatcher.AcknowledgeRead(message.ID, "u2")
	req.NoError(err)
	req.True(again.Read)
}

func TestDispatcher_RelayTyping_Is_Ephemeral(t *testing.T) {
	req := require.New(t)
	dispatcher, registry, db := newTestDispatcher(t, 8, nil)

	registry.Register("u2", &Sink{})
	dispatcher.RelayTyping("u1", "u2", true)

	req.Len(dispatcher.jobs, 1)
	job := <-dispatcher.jobs
	evt, ok := job.Event.(event.UserTyping)
	req.True(ok)
	req.Equal("u1", evt.SenderID)
	req.True(evt.IsTyping)

	// Nothing was persisted for the indicator
	log := slog.Default()
	stored, err := repositories.NewMessageRepository(db, log).GetConversation("u1", "u2")
	req.NoError(err)
	req.Empty(stored)
}

func TestDispatcher_Full_Queue_Drops_Instead_Of_Blocking(t *testing.T) {
	req := require.New(t)
	dispatcher, registry, _ := newTestDispatcher(t, 1, nil)
	registry.Register("u2", &Sink{})

	// When more events arrive than the queue holds, delivery returns
	// promptly; the store keeps the overflow retrievable
	req.NoError(dispatcher.DeliverMessage(mustMessage(t, "u1", "u2", "first")))
	req.NoError(dispatcher.DeliverMessage(mustMessage(t, "u1", "u2", "second")))

	req.Len(dispatcher.jobs, 1)
}

func TestDispatcher_DeliverNotification_Pushes_Summary(t *testing.T) {
	req := require.New(t)
	dispatcher, registry, _ := newTestDispatcher(t, 8, nil)
	registry.Register("u1", &Sink{})

	n, err := domain.NewNotification("u1", domain.TypeSystem, "Maintenance", "Back at noon.")
	req.NoError(err)
	req.NoError(dispatcher.DeliverNotification(n))

	req.Len(dispatcher.jobs, 1)
	job := <-dispatcher.jobs
	evt, ok := job.Event.(event.NotificationCreated)
	req.True(ok)
	req.Equal(n.ID, evt.ID)
	req.Equal("Maintenance", evt.Title)
	req.Equal("u1", job.Event.TargetID())
}

func TestDispatcher_DeliverMessage_Feeds_The_Index_Queue(t *testing.T) {
	req := require.New(t)
	indexQueue := make(chan domain.Message, 1)
	dispatcher, _, _ := newTestDispatcher(t, 8, indexQueue)

	message := mustMessage(t, "u1", "u2", "findable words")
	req.NoError(dispatcher.DeliverMessage(message))

	req.Len(indexQueue, 1)
	queued := <-indexQueue
	req.Equal(message.ID, queued.ID)
}

func TestDispatcher_Persistence_Failure_Aborts_Push(t *testing.T) {
	req := require.New(t)
	dispatcher, registry, db := newTestDispatcher(t, 8, nil)
	registry.Register("u2", &Sink{})

	// Given the store is unavailable
	req.NoError(db.Close())

	err := dispatcher.DeliverMessage(mustMessage(t, "u1", "u2", "Hello"))

	// Then the send fails and nothing is pushed
	req.Error(err)
	req.Empty(dispatcher.jobs)
}
