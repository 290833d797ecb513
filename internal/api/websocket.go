// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
	"github.com/Corphon/ScenarioForgeMCP/internal/services"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Tighten in production deployments.
		return true
	},
}

// EventHub fans scenario lifecycle events out to connected websocket
// clients. It subscribes to the engine notifier; slow clients are dropped
// rather than allowed to block the committing operation.
type EventHub struct {
	mu          sync.RWMutex
	clients     map[*websocket.Conn]chan []byte
	logger      *zap.Logger
	unsubscribe func()
}

// NewEventHub creates the hub and subscribes it to the notifier.
func NewEventHub(notifier *services.Notifier, logger *zap.Logger) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := &EventHub{
		clients: make(map[*websocket.Conn]chan []byte),
		logger:  logger,
	}
	hub.unsubscribe = notifier.Subscribe(hub.onEvent)
	return hub
}

// Close detaches the hub from the notifier and closes all connections.
func (h *EventHub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		close(send)
		conn.Close()
		delete(h.clients, conn)
	}
}

// onEvent serializes the event and queues it for every client.
func (h *EventHub) onEvent(event models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to serialize event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- payload:
		default:
			// Client cannot keep up; drop it.
			close(send)
			conn.Close()
			delete(h.clients, conn)
			h.logger.Warn("dropped slow websocket client")
		}
	}
}

// HandleWS upgrades the connection and streams lifecycle events until the
// client disconnects.
func (h *EventHub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	send := make(chan []byte, clientSendSize)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go h.writeLoop(conn, send)
	h.readLoop(conn)
}

func (h *EventHub) writeLoop(conn *websocket.Conn, send chan []byte) {
	for payload := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readLoop consumes (and discards) client frames; its only purpose is to
// detect disconnects and unregister the client.
func (h *EventHub) readLoop(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		if send, ok := h.clients[conn]; ok {
			close(send)
			delete(h.clients, conn)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
