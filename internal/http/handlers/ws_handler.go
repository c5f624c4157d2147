package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/auth"
	"github.com/property-shares/backend/internal/config"
	"github.com/property-shares/backend/internal/events"
	"github.com/property-shares/backend/internal/models"
)

type wsClient struct {
	conn     *websocket.Conn
	mineOnly bool
}

// WSHub streams relayed ledger events to dashboards. A client connecting
// with scope=me only receives the events it took part in, including both
// sides of a transfer.
type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]*wsClient
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*wsClient),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.ChannelLedger, h.broadcast)
}

func (h *WSHub) broadcast(event models.LedgerEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for holder, clients := range h.connections {
		for _, cl := range clients {
			if cl.mineOnly && !event.Involves(holder) {
				continue
			}
			_ = cl.conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	// Extract token from query
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	holder := claims.HolderID
	client := &wsClient{conn: conn, mineOnly: conn.Query("scope") == "me"}

	// Register
	h.mu.Lock()
	h.connections[holder] = append(h.connections[holder], client)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		clients := h.connections[holder]
		for i, cl := range clients {
			if cl == client {
				h.connections[holder] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.connections[holder]) == 0 {
			delete(h.connections, holder)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}
