package ws

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// PriceUpdate is the outbound frame delivered to every topic member after a
// committed price change.
type PriceUpdate struct {
	Type      string `json:"type"` // always "price.update"
	AssetID   string `json:"asset_id"`
	NewPrice  string `json:"new_price"`
	Timestamp string `json:"timestamp"` // ISO-8601
}

// Broadcaster queues committed price changes and fans them out to the price
// topic from a dedicated dispatcher goroutine. Enqueueing never blocks the
// write path: when the queue is full the oldest pending event is dropped.
// Stored state never depends on delivery succeeding.
type Broadcaster struct {
	hub   *Hub
	queue chan domain.PriceQuote
	log   *logrus.Logger
}

// NewBroadcaster creates a new Broadcaster instance with a bounded queue.
func NewBroadcaster(hub *Hub, log *logrus.Logger, queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Broadcaster{
		hub:   hub,
		queue: make(chan domain.PriceQuote, queueSize),
		log:   log,
	}
}

// Broadcast enqueues a committed quote for fan-out. Implements
// pricing.Broadcaster.
func (b *Broadcaster) Broadcast(quote domain.PriceQuote) {
	for {
		select {
		case b.queue <- quote:
			return
		default:
		}
		select {
		case dropped := <-b.queue:
			b.log.WithField("asset_id", dropped.AssetID).Warn("broadcast queue full, dropping oldest price event")
		default:
		}
	}
}

// Run drains the queue until the context is cancelled. Call it from its own
// goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case quote := <-b.queue:
			b.hub.Publish(PriceTopic, frameFor(quote))
		}
	}
}

func frameFor(quote domain.PriceQuote) PriceUpdate {
	return PriceUpdate{
		Type:      "price.update",
		AssetID:   quote.AssetID.String(),
		NewPrice:  quote.Price.StringFixed(2),
		Timestamp: quote.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
