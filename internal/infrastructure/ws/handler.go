package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fleettrack/tracking-system/internal/core/ports"
)

const writeTimeout = 10 * time.Second

// updateEvent is the frame sent to WebSocket clients.
type updateEvent struct {
	Event string              `json:"event"`
	Data  ports.VehicleUpdate `json:"data"`
}

// Handler upgrades HTTP requests to WebSocket connections and ties each
// connection to a hub subscription.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewHandler(hub *Hub, log zerolog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard may be served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Subscribe handles GET /api/live. The connection receives one
// "vehicle-update" event per report accepted after the subscription was
// established; there is no historical replay.
func (h *Handler) Subscribe(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error response.
		return nil
	}

	sub := h.hub.subscribe()
	h.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("subscriber connected")

	go h.writeLoop(conn, sub)
	h.readLoop(conn, sub)
	return nil
}

// writeLoop drains the subscriber queue onto the connection. It exits when
// the queue is closed by unsubscribe or when a write fails.
func (h *Handler) writeLoop(conn *websocket.Conn, sub *subscriber) {
	defer func() { _ = conn.Close() }()

	for update := range sub.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(updateEvent{Event: "vehicle-update", Data: update}); err != nil {
			h.hub.unsubscribe(sub)
			return
		}
	}
}

// readLoop blocks until the client closes the connection or errors, then
// deregisters the subscriber promptly.
func (h *Handler) readLoop(conn *websocket.Conn, sub *subscriber) {
	defer h.hub.unsubscribe(sub)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("subscriber disconnected")
			return
		}
	}
}
