// Package ws implements the live price-update surface: a topic hub for
// fan-out, a bounded broadcaster that decouples delivery from the write
// path, and the per-connection subscription channel.
package ws

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// PriceTopic is the shared topic every subscriber joins.
const PriceTopic = "price_updates"

// Hub tracks topic membership and relays frames to joined clients.
// Join, Leave and Publish are safe to call from any goroutine.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	log    *logrus.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*Client]struct{}),
		log:    log,
	}
}

// Join adds a client to a topic.
func (h *Hub) Join(topic string, c *Client) {
	h.mu.Lock()
	members, ok := h.topics[topic]
	if !ok {
		members = make(map[*Client]struct{})
		h.topics[topic] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()
}

// Leave removes a client from a topic. Unknown members are ignored.
func (h *Hub) Leave(topic string, c *Client) {
	h.mu.Lock()
	if members, ok := h.topics[topic]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()
}

// Publish relays a frame to every member of a topic. Delivery is
// best-effort per member: a client that cannot keep up is evicted so one
// slow consumer never stalls the rest.
func (h *Hub) Publish(topic string, v any) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if !c.enqueue(v) {
			h.log.WithField("topic", topic).Warn("evicting slow subscriber")
			h.Leave(topic, c)
			c.close()
		}
	}
}

// MemberCount reports the current number of clients joined to a topic.
func (h *Hub) MemberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
