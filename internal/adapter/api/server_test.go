package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/aggregation"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/auth"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/goals"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/pricing"
)

// In-memory repositories drive the full HTTP surface without a database.

type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*domain.User
	assets    map[uuid.UUID]*domain.Asset
	goals     map[uuid.UUID]*domain.Goal
	purchases map[uuid.UUID]*domain.Purchase
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uuid.UUID]*domain.User),
		assets:    make(map[uuid.UUID]*domain.Asset),
		goals:     make(map[uuid.UUID]*domain.Goal),
		purchases: make(map[uuid.UUID]*domain.Purchase),
	}
}

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return fmt.Errorf("%w: username or email already taken", domain.ErrInvalidValue)
		}
	}
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

type memAssetRepo struct{ s *memStore }

func (r *memAssetRepo) Create(_ context.Context, asset *domain.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.Ticker == asset.Ticker {
			return fmt.Errorf("%w: ticker already registered", domain.ErrInvalidValue)
		}
	}
	copied := *asset
	r.s.assets[asset.ID] = &copied
	return nil
}

func (r *memAssetRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memAssetRepo) List(_ context.Context) ([]*domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Asset, 0, len(r.s.assets))
	for _, a := range r.s.assets {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memAssetRepo) UpdatePrice(_ context.Context, id uuid.UUID, price decimal.Decimal) (*domain.PriceQuote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	a.CurrentPrice = price
	a.LastUpdated = time.Now().UTC()
	return &domain.PriceQuote{AssetID: id, Price: price, UpdatedAt: a.LastUpdated}, nil
}

type memGoalRepo struct{ s *memStore }

func (r *memGoalRepo) Create(_ context.Context, goal *domain.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *goal
	r.s.goals[goal.ID] = &copied
	return nil
}

func (r *memGoalRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Goal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.goals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *memGoalRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Goal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Goal, 0)
	for _, g := range r.s.goals {
		if g.UserID == userID {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memGoalRepo) Update(_ context.Context, goal *domain.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.goals[goal.ID]; !ok {
		return domain.ErrNotFound
	}
	copied := *goal
	r.s.goals[goal.ID] = &copied
	return nil
}

func (r *memGoalRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.goals[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.goals, id)
	for pid, p := range r.s.purchases {
		if p.GoalID == id {
			delete(r.s.purchases, pid)
		}
	}
	return nil
}

type memPurchaseRepo struct{ s *memStore }

func (r *memPurchaseRepo) Create(_ context.Context, purchase *domain.Purchase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	copied := *purchase
	r.s.purchases[purchase.ID] = &copied
	return nil
}

func (r *memPurchaseRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.purchases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memPurchaseRepo) ListByGoal(_ context.Context, goalID uuid.UUID) ([]*domain.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Purchase, 0)
	for _, p := range r.s.purchases {
		if p.GoalID == goalID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memPurchaseRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Purchase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*domain.Purchase, 0)
	for _, p := range r.s.purchases {
		if g, ok := r.s.goals[p.GoalID]; ok && g.UserID == userID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memPurchaseRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.purchases[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.purchases, id)
	return nil
}

// recordingBroadcaster captures quotes handed to the pricing service.
type recordingBroadcaster struct {
	mu     sync.Mutex
	quotes []domain.PriceQuote
}

func (b *recordingBroadcaster) Broadcast(quote domain.PriceQuote) {
	b.mu.Lock()
	b.quotes = append(b.quotes, quote)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.quotes)
}

type apiFixture struct {
	server      *httptest.Server
	broadcaster *recordingBroadcaster
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := newMemStore()
	broadcaster := &recordingBroadcaster{}

	authService := auth.NewService(&memUserRepo{store}, log, "test-secret", time.Hour)
	pricingService := pricing.NewService(&memAssetRepo{store}, broadcaster, log)
	goalsService := goals.NewService(&memGoalRepo{store}, &memPurchaseRepo{store}, &memAssetRepo{store})
	statsService := aggregation.NewService(&memGoalRepo{store}, &memPurchaseRepo{store}, &memAssetRepo{store})

	channel := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(NewServer(authService, goalsService, pricingService, statsService, channel, log).Handler())
	t.Cleanup(server.Close)

	return &apiFixture{server: server, broadcaster: broadcaster}
}

// do sends a JSON request and decodes the JSON response into out (when
// non-nil), returning the status code.
func (f *apiFixture) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) registerAndLogin(t *testing.T, username, email string, admin bool) string {
	t.Helper()

	path := "/api/register"
	if admin {
		path = "/api/register-admin"
	}
	status := f.do(t, http.MethodPost, path, "", map[string]string{
		"username": username,
		"email":    email,
		"password": "hunter2hunter2",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var login struct {
		Access string `json:"access"`
	}
	status = f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.Access)
	return login.Access
}

func (f *apiFixture) createAsset(t *testing.T, token, ticker, price string) uuid.UUID {
	t.Helper()

	var asset struct {
		ID uuid.UUID `json:"id"`
	}
	status := f.do(t, http.MethodPost, "/api/assets", token, map[string]string{
		"name":          ticker + " Holding",
		"ticker":        ticker,
		"category":      "STOCK",
		"current_price": price,
	}, &asset)
	require.Equal(t, http.StatusCreated, status)
	return asset.ID
}

func TestAPI_HealthIsPublic(t *testing.T) {
	f := newAPIFixture(t)

	var body map[string]string
	status := f.do(t, http.MethodGet, "/api/health", "", nil, &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_PreflightGetsCORSHeaders(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/goals", "/api/login", "/api/assets"} {
		req, err := http.NewRequest(http.MethodOptions, f.server.URL+path, nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode, path)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost, path)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization", path)
	}
}

func TestAPI_ProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	status := f.do(t, http.MethodGet, "/api/goals", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = f.do(t, http.MethodGet, "/api/goals", "not-a-token", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_LoginRejectsBadPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndLogin(t, "alice", "alice@example.com", false)

	status := f.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong-password",
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAPI_DuplicateEmailRejected(t *testing.T) {
	f := newAPIFixture(t)
	f.registerAndLogin(t, "alice", "alice@example.com", false)

	status := f.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_PriceUpdateFlow(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.registerAndLogin(t, "admin", "admin@example.com", true)
	assetID := f.createAsset(t, adminToken, "AAPL", "150.00")

	var updated map[string]string
	status := f.do(t, http.MethodPost, "/api/assets/"+assetID.String()+"/update_price", adminToken,
		map[string]string{"new_price": "155.00"}, &updated)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, assetID.String(), updated["asset_id"])
	assert.Equal(t, "155.00", updated["new_price"])
	assert.NotEmpty(t, updated["timestamp"])
	assert.Equal(t, 1, f.broadcaster.count(), "a committed update must reach the broadcaster")

	var asset struct {
		CurrentPrice string `json:"current_price"`
		Ticker       string `json:"ticker"`
	}
	status = f.do(t, http.MethodGet, "/api/assets/"+assetID.String(), adminToken, nil, &asset)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "155.00", asset.CurrentPrice)
	assert.Equal(t, "AAPL", asset.Ticker)
}

func TestAPI_NonAdminCannotManageAssets(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.registerAndLogin(t, "admin", "admin@example.com", true)
	userToken := f.registerAndLogin(t, "bob", "bob@example.com", false)
	assetID := f.createAsset(t, adminToken, "AAPL", "150.00")

	status := f.do(t, http.MethodPost, "/api/assets/"+assetID.String()+"/update_price", userToken,
		map[string]string{"new_price": "1.00"}, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Zero(t, f.broadcaster.count(), "a rejected update must not be broadcast")

	status = f.do(t, http.MethodPost, "/api/assets", userToken, map[string]string{
		"name": "Sneaky", "ticker": "SNK", "category": "STOCK", "current_price": "1.00",
	}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// price reads stay open to every authenticated user
	var asset struct {
		CurrentPrice string `json:"current_price"`
	}
	status = f.do(t, http.MethodGet, "/api/assets/"+assetID.String(), userToken, nil, &asset)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "150.00", asset.CurrentPrice)
}

func TestAPI_NegativePriceRejected(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.registerAndLogin(t, "admin", "admin@example.com", true)
	assetID := f.createAsset(t, adminToken, "AAPL", "150.00")

	status := f.do(t, http.MethodPost, "/api/assets/"+assetID.String()+"/update_price", adminToken,
		map[string]string{"new_price": "-5.00"}, nil)

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_UnknownAssetIs404(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "alice", "alice@example.com", false)

	status := f.do(t, http.MethodGet, "/api/assets/"+uuid.NewString(), token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = f.do(t, http.MethodGet, "/api/assets/not-a-uuid", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_GoalAndPurchaseFlow(t *testing.T) {
	f := newAPIFixture(t)
	adminToken := f.registerAndLogin(t, "admin", "admin@example.com", true)
	userToken := f.registerAndLogin(t, "alice", "alice@example.com", false)
	assetID := f.createAsset(t, adminToken, "AAPL", "150.00")

	var goal struct {
		ID uuid.UUID `json:"id"`
	}
	status := f.do(t, http.MethodPost, "/api/goals", userToken, map[string]any{
		"name":            "Retirement Fund",
		"category":        "STOCK",
		"asset_id":        assetID,
		"target_amount":   "1000.00",
		"years_to_invest": 10,
	}, &goal)
	require.Equal(t, http.StatusCreated, status)

	var purchase struct {
		ID           uuid.UUID `json:"id"`
		TotalCost    string    `json:"total_cost"`
		CurrentValue string    `json:"current_value"`
		GainLoss     string    `json:"gain_loss"`
		ROI          string    `json:"roi"`
		IsProfitable bool      `json:"is_profitable"`
	}
	status = f.do(t, http.MethodPost, "/api/investments", userToken, map[string]any{
		"goal":           goal.ID,
		"date":           "2026-01-15",
		"purchase_price": "140.00",
		"quantity":       "2",
	}, &purchase)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "280.00", purchase.TotalCost)
	assert.Equal(t, "300.00", purchase.CurrentValue)
	assert.Equal(t, "20.00", purchase.GainLoss)
	assert.Equal(t, "7.14", purchase.ROI)
	assert.True(t, purchase.IsProfitable)

	var fetched struct {
		TotalInvested         string  `json:"total_invested"`
		CurrentPortfolioValue string  `json:"current_portfolio_value"`
		NetGainLoss           string  `json:"net_gain_loss"`
		PortfolioROI          *string `json:"portfolio_roi"`
		Progress              string  `json:"progress"`
	}
	status = f.do(t, http.MethodGet, "/api/goals/"+goal.ID.String(), userToken, nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "280.00", fetched.TotalInvested)
	assert.Equal(t, "300.00", fetched.CurrentPortfolioValue)
	assert.Equal(t, "20.00", fetched.NetGainLoss)
	require.NotNil(t, fetched.PortfolioROI)
	assert.Equal(t, "7.14", *fetched.PortfolioROI)
	assert.Equal(t, "28.00", fetched.Progress)

	var overall struct {
		TotalTarget       string  `json:"total_target"`
		TotalInvested     string  `json:"total_invested"`
		TotalCurrentValue string  `json:"total_current_value"`
		TotalGainLoss     string  `json:"total_gain_loss"`
		TotalUnitsBought  string  `json:"total_units_bought"`
		TotalReturn       *string `json:"total_return"`
	}
	status = f.do(t, http.MethodGet, "/api/overall-goal-stats", userToken, nil, &overall)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1000.00", overall.TotalTarget)
	assert.Equal(t, "280.00", overall.TotalInvested)
	assert.Equal(t, "300.00", overall.TotalCurrentValue)
	assert.Equal(t, "20.00", overall.TotalGainLoss)
	assert.Equal(t, "2", overall.TotalUnitsBought)
	require.NotNil(t, overall.TotalReturn)
	assert.Equal(t, "7.14", *overall.TotalReturn)

	status = f.do(t, http.MethodDelete, "/api/investments/"+purchase.ID.String(), userToken, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestAPI_StatsWithNothingInvested(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "alice", "alice@example.com", false)

	var overall struct {
		TotalReturn *string `json:"total_return"`
	}
	status := f.do(t, http.MethodGet, "/api/overall-goal-stats", token, nil, &overall)

	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, overall.TotalReturn, "total_return must be null before any investment")
}

func TestAPI_ForeignGoalHidden(t *testing.T) {
	f := newAPIFixture(t)
	aliceToken := f.registerAndLogin(t, "alice", "alice@example.com", false)
	bobToken := f.registerAndLogin(t, "bob", "bob@example.com", false)

	var goal struct {
		ID uuid.UUID `json:"id"`
	}
	status := f.do(t, http.MethodPost, "/api/goals", aliceToken, map[string]any{
		"name":            "Private Goal",
		"category":        "FUND",
		"target_amount":   "500.00",
		"years_to_invest": 3,
	}, &goal)
	require.Equal(t, http.StatusCreated, status)

	status = f.do(t, http.MethodGet, "/api/goals/"+goal.ID.String(), bobToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status, "foreign goals must look like they do not exist")

	status = f.do(t, http.MethodDelete, "/api/goals/"+goal.ID.String(), bobToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = f.do(t, http.MethodGet, "/api/goals/"+goal.ID.String(), aliceToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_TokenRefresh(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "alice", "alice@example.com", false)

	var refreshed struct {
		Access string `json:"access"`
	}
	status := f.do(t, http.MethodPost, "/api/token/refresh", "", map[string]string{"token": token}, &refreshed)

	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, refreshed.Access)

	status = f.do(t, http.MethodGet, "/api/goals", refreshed.Access, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}
