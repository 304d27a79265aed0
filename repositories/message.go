package repositories

import (
	"encoding/json"
	"fmt"

	"courier/domain"
	"courier/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"log/slog"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetMessage(id uuid.UUID) (domain.Message, error)
	GetConversation(userA, userB string) ([]domain.Message, error)
	MessagesInvolving(userID string) ([]domain.Message, error)
	MarkRead(id uuid.UUID) (domain.Message, error)
}

// MessageRepository persists messages in BadgerDB. Every message is written
// under three access paths in a single transaction:
//
//	msg:id:{uuid}                          lookup for read acknowledgement
//	msg:pair:{lo|hi}:{ts_padded}:{uuid}    conversation scan between a pair
//	msg:user:{user}:{ts_padded}:{uuid}     per-participant scan (one key per
//	                                       participant) for inbox aggregation
//
// Timestamps use 19-digit zero padding so lexicographical key order is
// chronological order; the trailing UUID disconnects collisions when two
// messages land on the same nanosecond and breaks createdAt ties towards
// the higher id on reverse scans.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

const reverseSeekPad = "9999999999999999999"

func messageIDKey(id uuid.UUID) []byte {
	return []byte("msg:id:" + id.String())
}

// pairOf returns the canonical ordering of two participants so both
// directions of a conversation share one prefix.
func pairOf(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func messagePairKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:pair:%s:%019d:%s",
		pairOf(m.SenderID, m.ReceiverID), m.CreatedAt.UnixNano(), m.ID))
}

func messageUserKey(userID string, m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:user:%s:%019d:%s",
		userID, m.CreatedAt.UnixNano(), m.ID))
}

// StoreMessage writes all four keys atomically. Durability before
// visibility: the dispatcher only pushes after this returns nil.
func (r MessageRepository) StoreMessage(message domain.Message) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageIDKey(message.ID), bytes); err != nil {
			return err
		}
		if err := txn.Set(messagePairKey(message), bytes); err != nil {
			return err
		}
		if err := txn.Set(messageUserKey(message.SenderID, message), bytes); err != nil {
			return err
		}
		return txn.Set(messageUserKey(message.ReceiverID, message), bytes)
	})
}

func (r MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	return message, err
}

// GetConversation returns every message between the two participants,
// oldest first. A forward scan over the pair prefix is already in
// chronological order thanks to the padded timestamp.
func (r MessageRepository) GetConversation(userA, userB string) ([]domain.Message, error) {
	prefix := []byte("msg:pair:" + pairOf(userA, userB) + ":")
	return r.scan(prefix, false)
}

// MessagesInvolving returns every message where userID is sender or
// receiver, newest first. This is the single pass the conversation
// aggregation folds over; for same-nanosecond messages the reverse scan
// yields the higher UUID first, which is the documented tie-break.
func (r MessageRepository) MessagesInvolving(userID string) ([]domain.Message, error) {
	prefix := []byte("msg:user:" + userID + ":")
	return r.scan(prefix, true)
}

func (r MessageRepository) scan(prefix []byte, reverse bool) ([]domain.Message, error) {
	var raw [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = reverse
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if reverse {
			seekKey = append(append([]byte{}, prefix...), []byte(reverseSeekPad)...)
		}
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
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

	messages := make([]domain.Message, 0, len(raw))
	for _, b := range raw {
		var m domain.Message
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// MarkRead flips the read flag and rewrites all four keys in one
// transaction. Marking an already-read message is a no-op that returns the
// same terminal state.
func (r MessageRepository) MarkRead(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIDKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		}); err != nil {
			return err
		}
		if message.Read {
			return nil
		}
		message.Read = true
		bytes, err := json.Marshal(message)
		if err != nil {
			return err
		}
		if err := txn.Set(messageIDKey(message.ID), bytes); err != nil {
			return err
		}
		if err := txn.Set(messagePairKey(message), bytes); err != nil {
			return err
		}
		if err := txn.Set(messageUserKey(message.SenderID, message), bytes); err != nil {
			return err
		}
		return txn.Set(messageUserKey(message.ReceiverID, message), bytes)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, errors.ErrMessageNotFound
	}
	return message, err
}
