package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"courier/domain"
	"courier/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type INotificationRepository interface {
	StoreNotification(n domain.Notification) error
	GetNotification(id uuid.UUID) (domain.Notification, error)
	ListNotifications(recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error)
	UnreadCount(recipientID string) (int, error)
	MarkNotificationRead(id uuid.UUID) (domain.Notification, error)
	MarkAllRead(recipientID string) (int, error)
	DeleteNotification(id uuid.UUID) error
	DeleteAll(recipientID string) (int, error)
}

// NotificationRepository persists per-recipient notifications in BadgerDB.
// Key layout:
//
//	ntf:id:{uuid}                        lookup by identifier
//	ntf:user:{recipient}:{ts}:{uuid}     recency-ordered listing
//	ntf:unread:{recipient}:{ts}:{uuid}   empty marker, one per unread row
//
// The unread markers make the invariant "unread count == stored unread
// rows" a prefix key count; they are removed in the same transaction that
// flips isRead, so the counter can never drift or go negative.
type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

func notificationIDKey(id uuid.UUID) []byte {
	return []byte("ntf:id:" + id.String())
}

func notificationUserKey(n domain.Notification) []byte {
	return []byte(fmt.Sprintf("ntf:user:%s:%019d:%s", n.RecipientID, n.CreatedAt.UnixNano(), n.ID))
}

func notificationUnreadKey(n domain.Notification) []byte {
	return []byte(fmt.Sprintf("ntf:unread:%s:%019d:%s", n.RecipientID, n.CreatedAt.UnixNano(), n.ID))
}

func (r NotificationRepository) StoreNotification(n domain.Notification) error {
	bytes, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(notificationIDKey(n.ID), bytes); err != nil {
			return err
		}
		if err := txn.Set(notificationUserKey(n), bytes); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		return txn.Set(notificationUnreadKey(n), nil)
	})
}

func (r NotificationRepository) GetNotification(id uuid.UUID) (domain.Notification, error) {
	var n domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(notificationIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Notification{}, errors.ErrNotificationNotFound
	}
	return n, err
}

// ListNotifications returns the recipient's notifications newest first.
// limit <= 0 means no limit. With unreadOnly the scan walks the unread
// marker index and hydrates each row by id.
func (r NotificationRepository) ListNotifications(recipientID string, limit int, unreadOnly bool) ([]domain.Notification, error) {
	if unreadOnly {
		ids, err := r.unreadIDs(recipientID, limit)
		if err != nil {
			return nil, err
		}
		notifications := make([]domain.Notification, 0, len(ids))
		for _, id := range ids {
			n, err := r.GetNotification(id)
			if err != nil {
				return nil, err
			}
			notifications = append(notifications, n)
		}
		return notifications, nil
	}

	prefix := []byte("ntf:user:" + recipientID + ":")
	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte(reverseSeekPad)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(raw) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(raw))
	for _, b := range raw {
		var n domain.Notification
		if err := json.Unmarshal(b, &n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

// unreadIDs walks the unread marker index newest first and extracts the
// notification ids from the key tails.
func (r NotificationRepository) unreadIDs(recipientID string, limit int) ([]uuid.UUID, error) {
	prefix := []byte("ntf:unread:" + recipientID + ":")
	var ids []uuid.UUID
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte(reverseSeekPad)...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(ids) == limit {
				break
			}
			key := string(it.Item().Key())
			id, err := uuid.Parse(key[strings.LastIndex(key, ":")+1:])
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

func (r NotificationRepository) UnreadCount(recipientID string) (int, error) {
	prefix := []byte("ntf:unread:" + recipientID + ":")
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// MarkNotificationRead flips isRead and removes the unread marker in one
// transaction. Idempotent.
func (r NotificationRepository) MarkNotificationRead(id uuid.UUID) (domain.Notification, error) {
	var n domain.Notification
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(notificationIDKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		}); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		bytes, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := txn.Set(notificationIDKey(n.ID), bytes); err != nil {
			return err
		}
		if err := txn.Set(notificationUserKey(n), bytes); err != nil {
			return err
		}
		return txn.Delete(notificationUnreadKey(n))
	})
	if err == badger.ErrKeyNotFound {
		return domain.Notification{}, errors.ErrNotificationNotFound
	}
	return n, err
}

// MarkAllRead flips every unread notification of the recipient and returns
// how many rows changed.
func (r NotificationRepository) MarkAllRead(recipientID string) (int, error) {
	ids, err := r.unreadIDs(recipientID, 0)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := r.MarkNotificationRead(id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (r NotificationRepository) DeleteNotification(id uuid.UUID) error {
	n, err := r.GetNotification(id)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(notificationIDKey(n.ID)); err != nil {
			return err
		}
		if err := txn.Delete(notificationUserKey(n)); err != nil {
			return err
		}
		return txn.Delete(notificationUnreadKey(n))
	})
}

// DeleteAll removes every notification of the recipient and returns how
// many were removed.
func (r NotificationRepository) DeleteAll(recipientID string) (int, error) {
	all, err := r.ListNotifications(recipientID, 0, false)
	if err != nil {
		return 0, err
	}
	for _, n := range all {
		if err := r.DeleteNotification(n.ID); err != nil {
			return 0, err
		}
	}
	return len(all), nil
}
