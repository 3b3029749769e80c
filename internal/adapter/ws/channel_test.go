package ws

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/pricing"
)

// memoryAssetRepo is an in-memory AssetRepository used to drive the channel
// end to end without a database.
type memoryAssetRepo struct {
	mu     sync.Mutex
	assets map[uuid.UUID]*domain.Asset
}

func newMemoryAssetRepo(assets ...*domain.Asset) *memoryAssetRepo {
	repo := &memoryAssetRepo{assets: make(map[uuid.UUID]*domain.Asset)}
	for _, a := range assets {
		repo.assets[a.ID] = a
	}
	return repo
}

func (r *memoryAssetRepo) Create(_ context.Context, asset *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset.ID] = asset
	return nil
}

func (r *memoryAssetRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *asset
	return &copied, nil
}

func (r *memoryAssetRepo) List(_ context.Context) ([]*domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryAssetRepo) UpdatePrice(_ context.Context, id uuid.UUID, price decimal.Decimal) (*domain.PriceQuote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	asset.CurrentPrice = price
	asset.LastUpdated = time.Now().UTC()
	return &domain.PriceQuote{AssetID: id, Price: price, UpdatedAt: asset.LastUpdated}, nil
}

// staticTokens resolves fixed token strings to sessions.
type staticTokens map[string]domain.Session

func (t staticTokens) ParseToken(token string) (domain.Session, error) {
	session, ok := t[token]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: invalid token", domain.ErrPermissionDenied)
	}
	return session, nil
}

type channelFixture struct {
	server *httptest.Server
	hub    *Hub
	repo   *memoryAssetRepo
	cancel context.CancelFunc
}

func newChannelFixture(t *testing.T, tokens staticTokens, assets ...*domain.Asset) *channelFixture {
	t.Helper()

	log := quietLogger()
	hub := NewHub(log)
	repo := newMemoryAssetRepo(assets...)
	broadcaster := NewBroadcaster(hub, log, 16)
	registry := pricing.NewService(repo, broadcaster, log)
	channel := NewChannel(hub, registry, tokens, log, 16)

	ctx, cancel := context.WithCancel(context.Background())
	go broadcaster.Run(ctx)

	server := httptest.NewServer(channel)
	f := &channelFixture{server: server, hub: hub, repo: repo, cancel: cancel}
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return f
}

func (f *channelFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func testAsset() *domain.Asset {
	return &domain.Asset{
		ID:           uuid.New(),
		Name:         "Apple Inc.",
		Ticker:       "AAPL",
		Category:     domain.AssetCategoryStock,
		CurrentPrice: decimal.RequireFromString("150.00"),
		LastUpdated:  time.Now().UTC(),
	}
}

func TestChannel_AdminCommandReachesEverySubscriber(t *testing.T) {
	asset := testAsset()
	tokens := staticTokens{
		"admin-token": {UserID: uuid.New(), Username: "admin", IsDataAdmin: true},
	}
	f := newChannelFixture(t, tokens, asset)

	admin := f.dial(t, "admin-token")
	viewer := f.dial(t, "")

	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 2
	}, 2*time.Second, 10*time.Millisecond)

	err := admin.WriteJSON(map[string]string{
		"type":      "price_update",
		"asset_id":  asset.ID.String(),
		"new_price": "155.00",
	})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{admin, viewer} {
		frame := readFrame(t, conn)
		assert.Equal(t, "price.update", frame["type"])
		assert.Equal(t, asset.ID.String(), frame["asset_id"])
		assert.Equal(t, "155.00", frame["new_price"])
		assert.NotEmpty(t, frame["timestamp"])
	}

	stored, err := f.repo.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "155.00", stored.CurrentPrice.StringFixed(2))
}

func TestChannel_UnauthorizedCommandRejected(t *testing.T) {
	asset := testAsset()
	tokens := staticTokens{
		"viewer-token": {UserID: uuid.New(), Username: "viewer"},
	}
	f := newChannelFixture(t, tokens, asset)

	viewer := f.dial(t, "viewer-token")
	bystander := f.dial(t, "")

	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 2
	}, 2*time.Second, 10*time.Millisecond)

	err := viewer.WriteJSON(map[string]string{
		"type":      "price_update",
		"asset_id":  asset.ID.String(),
		"new_price": "999.00",
	})
	require.NoError(t, err)

	frame := readFrame(t, viewer)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["error"], "permission denied")

	// registry unchanged, nothing fanned out
	stored, err := f.repo.GetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", stored.CurrentPrice.StringFixed(2))

	require.NoError(t, bystander.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var unexpected map[string]any
	assert.Error(t, bystander.ReadJSON(&unexpected), "a rejected command must not be broadcast")
}

func TestChannel_AnonymousCommandRejected(t *testing.T) {
	asset := testAsset()
	f := newChannelFixture(t, staticTokens{}, asset)

	anonymous := f.dial(t, "")
	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 1
	}, 2*time.Second, 10*time.Millisecond)

	err := anonymous.WriteJSON(map[string]string{
		"type":      "price_update",
		"asset_id":  asset.ID.String(),
		"new_price": "1.00",
	})
	require.NoError(t, err)

	frame := readFrame(t, anonymous)
	assert.Equal(t, "error", frame["type"])
}

func TestChannel_MalformedCommandGetsErrorFrame(t *testing.T) {
	tokens := staticTokens{
		"admin-token": {UserID: uuid.New(), Username: "admin", IsDataAdmin: true},
	}
	f := newChannelFixture(t, tokens)

	admin := f.dial(t, "admin-token")
	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 1
	}, 2*time.Second, 10*time.Millisecond)

	err := admin.WriteJSON(map[string]string{
		"type":      "price_update",
		"asset_id":  "not-a-uuid",
		"new_price": "155.00",
	})
	require.NoError(t, err)

	frame := readFrame(t, admin)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["error"], "asset_id")
}

func TestChannel_UnknownFrameTypeIgnored(t *testing.T) {
	f := newChannelFixture(t, staticTokens{})

	conn := f.dial(t, "")
	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var unexpected map[string]any
	assert.Error(t, conn.ReadJSON(&unexpected), "unknown frame types are ignored without a reply")
	assert.Equal(t, 1, f.hub.MemberCount(PriceTopic), "an unknown frame must not drop the connection")
}

func TestChannel_DisconnectLeavesTopic(t *testing.T) {
	f := newChannelFixture(t, staticTokens{})

	conn := f.dial(t, "")
	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 0
	}, 2*time.Second, 10*time.Millisecond, "a closed connection must leave the topic")
}

func TestChannel_InvalidTokenStillReceives(t *testing.T) {
	asset := testAsset()
	tokens := staticTokens{
		"admin-token": {UserID: uuid.New(), Username: "admin", IsDataAdmin: true},
	}
	f := newChannelFixture(t, tokens, asset)

	// a bogus token downgrades to an anonymous subscription instead of failing
	viewer := f.dial(t, "expired-token")
	admin := f.dial(t, "admin-token")

	require.Eventually(t, func() bool {
		return f.hub.MemberCount(PriceTopic) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, admin.WriteJSON(map[string]string{
		"type":      "price_update",
		"asset_id":  asset.ID.String(),
		"new_price": "160.00",
	}))

	frame := readFrame(t, viewer)
	assert.Equal(t, "price.update", frame["type"])
	assert.Equal(t, "160.00", frame["new_price"])
}
