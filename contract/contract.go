package contract

import (
	"context"
	"reflect"

	"courier/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; supervision handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live session's inbound side. Consume must not block the
// caller beyond ctx: sinks buffer internally and drop when full.
type EventSink interface {
	Consume(ctx context.Context, e event.LiveEvent) error
}

// IRegistry maps user identities to their live sessions. It is the single
// owner of that mapping; nothing else holds sinks.
type IRegistry interface {
	Register(userID string, sink EventSink)
	Unregister(sink EventSink)
	SessionsFor(userID string) []EventSink
}
