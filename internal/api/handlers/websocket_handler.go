package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/pkg/logger"
)

const wsUserKey = "ws.user_id"

// WebSocketHandler pushes the caller's enrichment results as they land, so
// open dashboards pick up scores produced by other tabs or instances.
type WebSocketHandler struct {
	enrichments *enrichment.Service
}

func NewWebSocketHandler(enrichments *enrichment.Service) *WebSocketHandler {
	return &WebSocketHandler{
		enrichments: enrichments,
	}
}

// Upgrade admits websocket handshakes and carries the resolved user id into
// the connection.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(wsUserKey, identity.UserID(c))
	return c.Next()
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	userID, _ := c.Locals(wsUserKey).(string)
	logger.Info("WebSocket connection established", zap.String("user_id", userID))

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("user_id", userID))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := h.enrichments.Subscribe(ctx, userID)
	if err != nil {
		logger.Error("Failed to subscribe to enrichment updates", zap.Error(err))
		h.sendError(c, "Failed to subscribe to enrichment updates")
		return
	}

	pings := make(chan struct{}, 1)
	go h.readLoop(ctx, cancel, c, pings)

	if err := c.WriteJSON(map[string]interface{}{"type": "ready"}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-pings:
			if err := c.WriteJSON(map[string]interface{}{"type": "pong"}); err != nil {
				return
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := map[string]interface{}{
				"type":       "enrichment",
				"company_id": update.Result.CompanyID,
				"result":     update.Result,
			}
			if err := c.WriteJSON(msg); err != nil {
				logger.Warn("Failed to push enrichment update", zap.String("user_id", userID), zap.Error(err))
				return
			}
		}
	}
}

// readLoop consumes client frames until the connection drops. Only pings are
// understood; writes stay on the HandleConnection goroutine.
func (h *WebSocketHandler) readLoop(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, pings chan<- struct{}) {
	defer cancel()

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := c.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != "ping" {
			continue
		}
		select {
		case pings <- struct{}{}:
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}
