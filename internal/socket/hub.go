// server/internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSendBuffer = 16

// Relay forwards encoded messages to every server instance. The hub delivers
// a relayed message locally once it comes back through Deliver.
type Relay interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// Session is one subscriber connection on a topic.
type Session struct {
	ID    string
	Topic string
	// Send is closed by the hub on Unsubscribe or Close.
	Send chan []byte
}

// Hub fans messages out to the sessions subscribed to a topic.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Session
	closed bool

	relay      Relay
	sendBuffer int
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		topics:     make(map[string]map[string]*Session),
		sendBuffer: defaultSendBuffer,
		log:        log,
	}
}

// SetRelay routes Publish through a cross-instance relay. Must be called
// before the hub serves traffic.
func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

// Subscribe registers a new session on topic.
func (h *Hub) Subscribe(topic string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("hub is closed")
	}

	s := &Session{
		ID:    uuid.NewString(),
		Topic: topic,
		Send:  make(chan []byte, h.sendBuffer),
	}
	sessions, ok := h.topics[topic]
	if !ok {
		sessions = make(map[string]*Session)
		h.topics[topic] = sessions
	}
	sessions[s.ID] = s
	h.log.Debug("WebSocket session joined", zap.String("topic", topic), zap.String("session", s.ID))
	return s, nil
}

// Unsubscribe removes the session and closes its Send channel. Safe to call twice.
func (h *Hub) Unsubscribe(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.topics[s.Topic]
	if !ok {
		return
	}
	if _, ok := sessions[s.ID]; !ok {
		return
	}
	delete(sessions, s.ID)
	close(s.Send)
	if len(sessions) == 0 {
		delete(h.topics, s.Topic)
	}
	h.log.Debug("WebSocket session left", zap.String("topic", s.Topic), zap.String("session", s.ID))
}

// Publish encodes payload as JSON and delivers it to the topic's sessions,
// through the relay when one is set.
func (h *Hub) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", topic, err)
	}

	if h.relay != nil {
		if err := h.relay.Publish(ctx, topic, data); err != nil {
			h.Deliver(topic, data)
			return fmt.Errorf("relay publish failed, delivered locally only: %w", err)
		}
		return nil
	}

	h.Deliver(topic, data)
	return nil
}

// Deliver hands data to every local session of topic and returns how many
// accepted it. A session whose buffer is full misses the message.
func (h *Hub) Deliver(topic string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, s := range h.topics[topic] {
		select {
		case s.Send <- data:
			delivered++
		default:
			h.log.Warn("Dropping message for slow WebSocket session",
				zap.String("topic", topic), zap.String("session", id))
		}
	}
	return delivered
}

// Subscribers reports the number of local sessions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close drops every session. Later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, sessions := range h.topics {
		for _, s := range sessions {
			close(s.Send)
		}
		delete(h.topics, topic)
	}
	h.closed = true
}
