package runtime

import (
	"context"
	"testing"

	"courier/domain/event"

	"github.com/stretchr/testify/require"
)

type Sink struct {
	consumed []event.LiveEvent
}

func (s *Sink) Consume(ctx context.Context, e event.LiveEvent) error {
	s.consumed = append(s.consumed, e)
	return nil
}

func TestRegistry_Register_One_User_One_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &Sink{}

	// Given no session is registered
	req.Equal(0, registry.SessionCount())
	req.Empty(registry.SessionsFor("u1"))

	// When a session joins
	registry.Register("u1", sink)

	// Then it is the user's only push target
	req.Equal(1, registry.SessionCount())
	req.Len(registry.SessionsFor("u1"), 1)
	req.Contains(registry.SessionsFor("u1"), sink)
}

func TestRegistry_Register_One_User_Multiple_Sessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink1 := &Sink{}
	sink2 := &Sink{}

	// When the same user joins from two devices
	registry.Register("u1", sink1)
	registry.Register("u1", sink2)

	// Then both sessions are push targets
	req.Equal(2, registry.SessionCount())
	sinks := registry.SessionsFor("u1")
	req.Len(sinks, 2)
	req.Contains(sinks, sink1)
	req.Contains(sinks, sink2)
}

func TestRegistry_Unregister_Removes_Session_Immediately(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink1 := &Sink{}
	sink2 := &Sink{}
	registry.Register("u1", sink1)
	registry.Register("u1", sink2)

	// When one session disconnects
	registry.Unregister(sink1)

	// Then only the other remains a target
	sinks := registry.SessionsFor("u1")
	req.Len(sinks, 1)
	req.Contains(sinks, sink2)
	req.Equal(1, registry.SessionCount())

	// And removing the last one leaves the user fully offline
	registry.Unregister(sink2)
	req.Empty(registry.SessionsFor("u1"))
	req.Equal(0, registry.SessionCount())
}

func TestRegistry_Unregister_Unknown_Sink_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("u1", &Sink{})

	registry.Unregister(&Sink{})

	req.Equal(1, registry.SessionCount())
}

func TestRegistry_ReRegister_Moves_The_Binding(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &Sink{}
	registry.Register("u1", sink)

	// When the same connection joins again as another user
	registry.Register("u2", sink)

	// Then the old binding is gone, not leaked
	req.Empty(registry.SessionsFor("u1"))
	req.Len(registry.SessionsFor("u2"), 1)
	req.Equal(1, registry.SessionCount())
}

func TestRegistry_SessionsFor_Is_A_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &Sink{}
	registry.Register("u1", sink)

	snapshot := registry.SessionsFor("u1")
	registry.Unregister(sink)

	// The caller's copy is unaffected by later changes
	req.Len(snapshot, 1)
	req.Empty(registry.SessionsFor("u1"))
}
