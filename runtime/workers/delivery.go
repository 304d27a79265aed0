package workers

import (
	"context"
	"log/slog"
	"time"

	"courier/runtime"
)

// DeliveryWorker drains the dispatcher's push queue and fans each event out
// to its session snapshot.
//
// Best-effort by construction: one worker drains the queue so events
// addressed to the same user keep their persisted order, each sink gets its
// own bounded-time Consume, and a failure on one sink never blocks the
// others nor reaches the write path that queued the job.
type DeliveryWorker struct {
	log         *slog.Logger
	jobs        <-chan runtime.PushJob
	pushTimeout time.Duration
}

func NewDeliveryWorker(log *slog.Logger, jobs <-chan runtime.PushJob, pushTimeout time.Duration) *DeliveryWorker {
	return &DeliveryWorker{log: log, jobs: jobs, pushTimeout: pushTimeout}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping delivery worker")
			return nil
		case job := <-w.jobs:
			w.fanout(ctx, job)
		}
	}
}

func (w *DeliveryWorker) fanout(ctx context.Context, job runtime.PushJob) {
	for _, sink := range job.Sinks {
		pushCtx, cancel := context.WithTimeout(ctx, w.pushTimeout)
		err := sink.Consume(pushCtx, job.Event)
		cancel()
		if err != nil {
			// Isolated: logged, no retry, remaining sinks still served.
			w.log.Warn("Push to session failed",
				"event", job.Event.Name(),
				"target", job.Event.TargetID(),
				"error", err)
		}
	}
}
