package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names broadcast to webinar rooms.
const (
	EventCTAActivated   = "cta_activated"
	EventCTADeactivated = "cta_deactivated"
	EventStatusChanged  = "status_changed"
)

// Hub maintains webinar_id -> set of connections and broadcasts lifecycle
// events (CTA toggles, status changes). Uses Redis pub/sub for horizontal
// scaling: local broadcast + publish to Redis.
type Hub struct {
	// webinarID -> map[clientID]*Client
	webinars map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per webinar
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishWebinarEvent(webinarID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to webinar channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeWebinar(webinarID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		webinars: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a webinar room. Starts Redis subscription for this webinar if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.webinars[c.WebinarID] == nil {
		h.webinars[c.WebinarID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeWebinar(c.WebinarID, func(event string, payload []byte) {
				h.broadcastLocal(c.WebinarID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.WebinarID] = cancel
			}
		}
	}
	h.webinars[c.WebinarID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined webinar", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

// Unregister removes a client from a webinar room. Cancels Redis subscription when last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.webinars[c.WebinarID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.webinars, c.WebinarID)
			if cancel, ok := h.subs[c.WebinarID]; ok {
				cancel()
				delete(h.subs, c.WebinarID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left webinar", zap.String("client_id", c.ID), zap.String("webinar_id", c.WebinarID.String()))
}

func (h *Hub) broadcastLocal(webinarID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	// Copy the recipient list while holding the lock. Register and Unregister
	// mutate the room map concurrently with broadcasts.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.webinars[webinarID]))
	for _, c := range h.webinars[webinarID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToWebinarAndPublish sends to local clients and publishes to Redis for other instances.
func (h *Hub) BroadcastToWebinarAndPublish(webinarID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(webinarID, event, data)
	if h.redis != nil {
		_ = h.redis.PublishWebinarEvent(webinarID, event, data)
	}
}

// AudienceCount returns the number of connected clients in a webinar.
func (h *Hub) AudienceCount(webinarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.webinars[webinarID])
}
