package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

const (
	wsSendBuffer   = 64
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second

	subscriptionLocal = "ws_subscription"
)

// Subscription is the set of topics a websocket client receives, fixed at
// connect time.
type Subscription struct {
	Topics map[domain.Topic]bool
	Admin  bool
}

var errAdminTopic = errors.New("topic requires audience=admin")

// ParseSubscription reads the comma-separated topics list. An empty list
// means every topic the audience may see. Admin-only topics are refused
// for non-admin clients.
func ParseSubscription(topics string, admin bool) (Subscription, error) {
	sub := Subscription{Topics: make(map[domain.Topic]bool), Admin: admin}
	if strings.TrimSpace(topics) == "" {
		for _, t := range domain.Topics {
			if admin || !t.AdminOnly() {
				sub.Topics[t] = true
			}
		}
		return sub, nil
	}
	for _, raw := range strings.Split(topics, ",") {
		t := domain.Topic(strings.TrimSpace(raw))
		if t == "" {
			continue
		}
		if !t.Valid() {
			return Subscription{}, domain.ValidationError{Field: "topics", Msg: fmt.Sprintf("unknown topic %q", t)}
		}
		if t.AdminOnly() && !admin {
			return Subscription{}, fmt.Errorf("%s: %w", t, errAdminTopic)
		}
		sub.Topics[t] = true
	}
	return sub, nil
}

type wsClient struct {
	sub  Subscription
	send chan []byte
}

// Hub fans broadcast events out to websocket clients in this process. It
// implements ports.Broadcaster; delivery is at-most-once and a client whose
// buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*wsClient]struct{})}
}

// Publish delivers ev to every client subscribed to topic.
func (h *Hub) Publish(_ context.Context, topic domain.Topic, ev domain.Event) error {
	if ev.Topic == "" {
		ev.Topic = topic
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for c := range h.clients {
		if !c.sub.Topics[topic] {
			continue
		}
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("ws clients too slow, event dropped", "topic", topic, "clients", dropped)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(sub Subscription) *wsClient {
	c := &wsClient{sub: sub, send: make(chan []byte, wsSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSockets.Inc()
	return c
}

// unregister removes c and closes its send channel. Publish holds the read
// lock while sending, so the close never races a send.
func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.ActiveWebSockets.Dec()
	}
	h.mu.Unlock()
}

// WebSocketUpgradeMiddleware validates the upgrade request and its topic
// subscription before the connection is accepted. audience=admin requires an
// admin token in the Authorization header or the token query parameter.
func WebSocketUpgradeMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		admin := false
		if c.Query("audience") == RoleAdmin {
			if secret != "" {
				raw := bearerToken(c)
				if raw == "" {
					raw = c.Query("token")
				}
				if err := verifyAdmin(secret, raw); err != nil {
					return errUnauthorized(c, err.Error())
				}
			}
			admin = true
		}

		sub, err := ParseSubscription(c.Query("topics"), admin)
		switch {
		case errors.Is(err, errAdminTopic):
			return errForbidden(c, err.Error())
		case err != nil:
			return errBadRequest(c, err.Error())
		}
		c.Locals(subscriptionLocal, sub)
		return c.Next()
	}
}

// WebSocketHandler streams hub events to one client. Clients do not send
// anything meaningful; reads only detect disconnects.
func WebSocketHandler(hub *Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		sub, _ := conn.Locals(subscriptionLocal).(Subscription)
		client := hub.register(sub)
		remote := conn.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remote, "topics", len(sub.Topics), "admin", sub.Admin)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer func() {
			ticker.Stop()
			hub.unregister(client)
			_ = conn.Close()
			slog.Debug("ws client disconnected", "remote", remote)
		}()

		for {
			select {
			case msg, ok := <-client.send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
