package workers

import (
	"context"
	"log/slog"

	"courier/domain"
	"courier/search"
)

// IndexWorker feeds stored messages into the search index. The queue is the
// decoupling point: a slow or failing index never delays a send.
type IndexWorker struct {
	log   *slog.Logger
	index *search.MessageIndex
	queue <-chan domain.Message
}

func NewIndexWorker(log *slog.Logger, index *search.MessageIndex, queue <-chan domain.Message) *IndexWorker {
	return &IndexWorker{log: log, index: index, queue: queue}
}

func (w *IndexWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping index worker")
			return nil
		case message := <-w.queue:
			if err := w.index.Index(message); err != nil {
				w.log.Warn("Indexing message failed", "message_id", message.ID, "error", err)
			}
		}
	}
}
