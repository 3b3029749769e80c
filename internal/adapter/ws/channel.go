package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/pricing"
)

// TokenParser turns a bearer token into a session. Satisfied by the auth
// service.
type TokenParser interface {
	ParseToken(token string) (domain.Session, error)
}

// inboundFrame is the admin-originated price-change command.
type inboundFrame struct {
	Type     string `json:"type"` // "price_update"
	AssetID  string `json:"asset_id"`
	NewPrice string `json:"new_price"`
}

// errorFrame is sent back when an inbound command is rejected. The original
// behavior silently dropped unauthorized attempts; rejecting explicitly is
// deliberate here.
type errorFrame struct {
	Type  string `json:"type"` // always "error"
	Error string `json:"error"`
}

// Channel upgrades HTTP requests to subscriber connections and drives the
// per-connection lifecycle: join the price topic on connect, relay broadcast
// frames out, accept admin price commands in, leave on disconnect.
type Channel struct {
	hub        *Hub
	registry   *pricing.Service
	tokens     TokenParser
	log        *logrus.Logger
	sendBuffer int
	upgrader   websocket.Upgrader
}

// NewChannel creates a new Channel instance
func NewChannel(hub *Hub, registry *pricing.Service, tokens TokenParser, log *logrus.Logger, sendBuffer int) *Channel {
	return &Channel{
		hub:        hub,
		registry:   registry,
		tokens:     tokens,
		log:        log,
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles the websocket handshake. Receiving updates requires no
// authentication; a token query parameter optionally attaches a session so
// the connection can send admin commands.
func (ch *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var session domain.Session
	if token := r.URL.Query().Get("token"); token != "" {
		parsed, err := ch.tokens.ParseToken(token)
		if err != nil {
			ch.log.WithError(err).Debug("ignoring invalid websocket token")
		} else {
			session = parsed
		}
	}

	conn, err := ch.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(conn, session, ch.sendBuffer)
	ch.hub.Join(PriceTopic, client)
	client.setState(stateJoined)

	go client.writePump()
	ch.readPump(client)
}

// readPump consumes inbound frames until the peer disconnects, then leaves
// the topic so no further delivery is attempted.
func (ch *Channel) readPump(client *Client) {
	defer func() {
		ch.hub.Leave(PriceTopic, client)
		client.close()
	}()

	for {
		var frame inboundFrame
		if err := client.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ch.log.WithError(err).Debug("websocket read failed")
			}
			return
		}
		if frame.Type != "price_update" {
			continue
		}
		ch.handlePriceCommand(client, frame)
	}
}

// handlePriceCommand authorizes and applies an inbound price change. The
// registry does the capability check and the broadcast; rejected commands
// get an explicit error frame instead of a silent drop.
func (ch *Channel) handlePriceCommand(client *Client, frame inboundFrame) {
	if !client.session.Authenticated() {
		client.enqueue(errorFrame{Type: "error", Error: "permission denied: price updates require an authenticated data admin"})
		return
	}

	assetID, err := uuid.Parse(frame.AssetID)
	if err != nil {
		client.enqueue(errorFrame{Type: "error", Error: "invalid value: malformed asset_id"})
		return
	}
	newPrice, err := decimal.NewFromString(frame.NewPrice)
	if err != nil {
		client.enqueue(errorFrame{Type: "error", Error: "invalid value: malformed new_price"})
		return
	}

	ctx := context.Background()
	if _, err := ch.registry.SetPrice(ctx, client.session, assetID, newPrice); err != nil {
		if !errors.Is(err, domain.ErrPermissionDenied) && !errors.Is(err, domain.ErrInvalidValue) && !errors.Is(err, domain.ErrNotFound) {
			ch.log.WithError(err).Error("price command failed")
		}
		client.enqueue(errorFrame{Type: "error", Error: err.Error()})
	}
}
