// Package gateway exposes the live channel: one websocket per session,
// JSON frames both ways. A session exists as soon as the socket upgrades
// but only becomes a push target after a successful join.
package gateway

import (
	"encoding/json"

	"courier/domain/event"
)

// Frame is the wire envelope for both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client→server frame names.
const (
	frameJoin       = "join"
	frameTyping     = "typing"
	frameMarkAsRead = "mark-as-read"
)

type joinPayload struct {
	Token string `json:"token"`
}

type typingPayload struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type markAsReadPayload struct {
	MessageID string `json:"messageId"`
}

// marshalFrame flattens a live event into its wire shape. NewMessage sends
// the full message object as data, matching what the REST surface returns.
func marshalFrame(e event.LiveEvent) ([]byte, error) {
	var payload any = e
	if m, ok := e.(event.NewMessage); ok {
		payload = m.Message
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: e.Name(), Data: data})
}
