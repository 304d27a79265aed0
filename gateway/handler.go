package gateway

import (
	"log/slog"
	"net/http"

	"courier/contract"
	"courier/services"

	"github.com/gorilla/websocket"
)

// Handler upgrades /ws requests and starts the session pumps. The upgrade
// itself is open; identity arrives with the join frame.
type Handler struct {
	log        *slog.Logger
	registry   contract.IRegistry
	messaging  services.IMessagingService
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewHandler(log *slog.Logger, registry contract.IRegistry,
	messaging services.IMessagingService, sendBuffer int) *Handler {
	return &Handler{
		log:        log,
		registry:   registry,
		messaging:  messaging,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the fronting proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.log, conn, h.registry, h.messaging, h.sendBuffer)
	go client.writePump()
	go client.readPump()
}
