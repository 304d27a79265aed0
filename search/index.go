// Package search maintains a full-text index over message content so a
// user can find old conversations. Indexing rides a queue off the write
// path; the index is derived data and can always be rebuilt from the store.
package search

import (
	"context"
	"log/slog"

	"courier/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

// MessageIndex wraps a bluge writer. Each message becomes one document with
// its content analyzed and both participant ids as exact keywords, so a
// query can be scoped to messages the caller took part in.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// NewMessageIndex opens (or creates) the index at path. An empty path means
// in-memory only, used by tests.
func NewMessageIndex(path string, log *slog.Logger) (*MessageIndex, error) {
	config := bluge.InMemoryOnlyConfig()
	if path != "" {
		config = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(config)
	if err != nil {
		return nil, err
	}
	return &MessageIndex{writer: writer, log: log}, nil
}

func (x *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content)).
		AddField(bluge.NewKeywordField("sender", message.SenderID)).
		AddField(bluge.NewKeywordField("receiver", message.ReceiverID))
	return x.writer.Update(doc.ID(), doc)
}

// Search returns the ids of messages involving userID whose content
// matches terms, best match first.
func (x *MessageIndex) Search(ctx context.Context, userID, terms string, limit int) ([]uuid.UUID, error) {
	participant := bluge.NewBooleanQuery().
		AddShould(bluge.NewTermQuery(userID).SetField("sender")).
		AddShould(bluge.NewTermQuery(userID).SetField("receiver")).
		SetMinShould(1)
	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(participant)

	reader, err := x.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					ids = append(ids, id)
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

func (x *MessageIndex) Close() error {
	return x.writer.Close()
}
