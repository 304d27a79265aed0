package runtime

import (
	"fmt"
	"log/slog"

	"courier/contract"
	"courier/domain"
	"courier/domain/event"
	"courier/repositories"

	"github.com/google/uuid"
)

// PushJob is one live event with the session snapshot it targets. Jobs are
// queued by the write path and drained by a single DeliveryWorker so
// per-conversation persisted order is also push order.
type PushJob struct {
	Event event.LiveEvent
	Sinks []contract.EventSink
}

// Dispatcher couples the stores with the registry: persist first, then
// best-effort push. A persistence failure aborts before any push; a full
// push queue degrades to store-only delivery, the backlog is retrievable
// through pull queries on the next connect.
type Dispatcher struct {
	log           *slog.Logger
	registry      contract.IRegistry
	messages      repositories.IMessageRepository
	notifications repositories.INotificationRepository
	jobs          chan PushJob
	indexQueue    chan<- domain.Message
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository,
	notifications repositories.INotificationRepository,
	bufferSize int, indexQueue chan<- domain.Message) *Dispatcher {
	return &Dispatcher{
		log:           log,
		registry:      registry,
		messages:      messages,
		notifications: notifications,
		jobs:          make(chan PushJob, bufferSize),
		indexQueue:    indexQueue,
	}
}

// Jobs exposes the push queue to the delivery worker.
func (d *Dispatcher) Jobs() <-chan PushJob { return d.jobs }

// DeliverMessage persists the message and pushes it to every live session
// of the receiver. The push is never awaited; its outcome cannot fail the
// send.
func (d *Dispatcher) DeliverMessage(message domain.Message) error {
	if err := d.messages.StoreMessage(message); err != nil {
		return fmt.Errorf("persisting message: %w", err)
	}
	if d.indexQueue != nil {
		select {
		case d.indexQueue <- message:
		default:
			d.log.Warn("Search index queue full, message not indexed", "message_id", message.ID)
		}
	}
	d.enqueue(event.NewMessage{Message: message})
	return nil
}

// DeliverNotification persists the notification and pushes a lightweight
// summary to the recipient's sessions.
func (d *Dispatcher) DeliverNotification(n domain.Notification) error {
	if err := d.notifications.StoreNotification(n); err != nil {
		return fmt.Errorf("persisting notification: %w", err)
	}
	d.enqueue(event.NotificationCreated{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Type:        n.Type,
		Title:       n.Title,
		Link:        n.Link,
	})
	return nil
}

// AcknowledgeRead persists the read flag, then relays the acknowledgement
// to the sender's live sessions only. Idempotent: a second acknowledgement
// reaches the same terminal state without error.
func (d *Dispatcher) AcknowledgeRead(messageID uuid.UUID, readerID string) (domain.Message, error) {
	message, err := d.messages.MarkRead(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	d.enqueue(event.MessageRead{
		MessageID: message.ID,
		ReadBy:    readerID,
		SenderID:  message.SenderID,
	})
	return message, nil
}

// RelayTyping forwards a typing indicator to the receiver's sessions.
// Stateless: nothing is persisted and the signal is safe to replay.
func (d *Dispatcher) RelayTyping(senderID, receiverID string, isTyping bool) {
	d.enqueue(event.UserTyping{SenderID: senderID, ReceiverID: receiverID, IsTyping: isTyping})
}

// enqueue snapshots the target sessions and hands the job to the delivery
// worker. Offline target or full queue: the event is dropped here, the
// stores already hold the durable copy.
func (d *Dispatcher) enqueue(e event.LiveEvent) {
	sinks := d.registry.SessionsFor(e.TargetID())
	if len(sinks) == 0 {
		return
	}
	select {
	case d.jobs <- PushJob{Event: e, Sinks: sinks}:
	default:
		d.log.Warn("Push queue full, dropping live event",
			"event", e.Name(), "target", e.TargetID())
	}
}
