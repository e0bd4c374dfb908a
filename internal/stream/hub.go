package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "journeys:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Event tells a user's open sessions that one of their journeys changed.
type Event struct {
	Type      string          `json:"type"`
	JourneyID string          `json:"journey_id"`
	Journey   json.RawMessage `json:"journey,omitempty"`
	At        time.Time       `json:"at"`
}

const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Hub fans events out to websocket clients grouped by user. With redis, every
// instance publishes to and receives from the same pattern so clients
// connected to another instance are reached too.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	logger  *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		redis:   redisClient,
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	close(client.Send)
}

// Publish encodes ev and broadcasts it to the user's clients.
func (h *Hub) Publish(userID string, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("encode event", "user_id", userID, "error", err)
		return
	}
	h.Broadcast(userID, payload)
}

// Broadcast sends payload to the user's clients. When the redis subscription
// is live, local clients receive it back through redis; otherwise, or when
// the publish fails, they are served directly.
func (h *Hub) Broadcast(userID string, payload []byte) {
	if h.redis == nil {
		h.deliver(userID, payload)
		return
	}

	err := h.redis.Publish(context.Background(), redisChannel(userID), payload).Err()
	if err != nil {
		h.logger.Warn("redis publish failed", "user_id", userID, "error", err)
	}
	if err != nil || h.pubsub == nil {
		h.deliver(userID, payload)
	}
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("client buffer full, event dropped", "user_id", userID)
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn("redis subscribe failed, serving local clients only", "error", err)
		_ = pubsub.Close()
		return
	}
	h.pubsub = pubsub

	go func() {
		for msg := range pubsub.Channel() {
			userID := userIDFromChannel(msg.Channel)
			if userID == "" {
				continue
			}
			h.deliver(userID, []byte(msg.Payload))
		}
	}()
}

// Close stops the redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

func userIDFromChannel(ch string) string {
	// journeys:{user}:events
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
