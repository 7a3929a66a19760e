// Package ws streams registry health events to websocket subscribers.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/orchestr8/federation/internal/provider/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

const pingInterval = 30 * time.Second

// Handler manages websocket connections.
type Handler struct {
	registry *registry.Registry
	logger   *zap.Logger
}

// NewHandler creates a new websocket handler.
func NewHandler(reg *registry.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		registry: reg,
		logger:   logger.Named("ws"),
	}
}

// HandleConnection upgrades the request and streams registry events to the
// client until it disconnects or the request context ends. The client side
// is read only to detect disconnects; inbound payloads are discarded.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := h.registry.Subscribe()
	defer unsubscribe()

	h.send(conn, map[string]interface{}{
		"type":      "system",
		"message":   "connected to federation event stream",
		"providers": h.registry.List(),
	})

	// Reader goroutine detects client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.send(conn, ev); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, data interface{}) error {
	return conn.WriteJSON(data)
}
