package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"courier/auth"
	"courier/contract"
	"courier/domain/event"
	"courier/errors"
	"courier/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer.
	maxFrameSize = 4096
)

// Client is one websocket session. It is also the registry's EventSink:
// pushes land on the buffered send channel and the write pump drains it in
// order.
type Client struct {
	log       *slog.Logger
	conn      *websocket.Conn
	registry  contract.IRegistry
	messaging services.IMessagingService

	// Buffered channel of outbound frames.
	send chan []byte

	// Set by a successful join; empty until then.
	userID string
}

func newClient(log *slog.Logger, conn *websocket.Conn, registry contract.IRegistry,
	messaging services.IMessagingService, sendBuffer int) *Client {
	return &Client{
		log:       log,
		conn:      conn,
		registry:  registry,
		messaging: messaging,
		send:      make(chan []byte, sendBuffer),
	}
}

// Consume implements contract.EventSink. Non-blocking: when the session's
// buffer is full the event is dropped for this session only, the store
// already holds it.
func (c *Client) Consume(ctx context.Context, e event.LiveEvent) error {
	frame, err := marshalFrame(e)
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrDelivery
	}
}

// readPump pumps frames from the websocket connection to the services.
// Unregistration on exit is immediate: the deferred call runs before the
// connection closes, so a dead transport never stays a dispatch target.
func (c *Client) readPump() {
	defer func() {
		c.registry.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("Websocket read error", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debug("Dropping malformed frame", "error", err)
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame Frame) {
	switch frame.Event {
	case frameJoin:
		var payload joinPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		claims, err := auth.ValidateToken(payload.Token)
		if err != nil {
			c.log.Warn("Join rejected, invalid token", "error", err)
			return
		}
		c.userID = claims.UserID
		// The sole mechanism making this session reachable for push.
		c.registry.Register(claims.UserID, c)
		c.log.Info("Session joined", "user_id", claims.UserID)

	case frameTyping:
		if c.userID == "" {
			return
		}
		var payload typingPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		c.messaging.Typing(c.userID, payload.ReceiverID, payload.IsTyping)

	case frameMarkAsRead:
		if c.userID == "" {
			return
		}
		var payload markAsReadPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return
		}
		id, err := uuid.Parse(payload.MessageID)
		if err != nil {
			return
		}
		if _, err := c.messaging.MarkRead(id, c.userID); err != nil {
			c.log.Debug("Read acknowledgement failed", "message_id", id, "error", err)
		}

	default:
		c.log.Debug("Unknown client frame", "event", frame.Event)
	}
}

// writePump pumps frames from the send channel to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
