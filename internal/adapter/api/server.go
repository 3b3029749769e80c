// Package api exposes the REST surface: auth plumbing, asset/goal/purchase
// CRUD, the admin price-update action, the overall stats endpoint, and the
// websocket upgrade route. Handlers are thin; all rules live in the use
// cases.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/aggregation"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/auth"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/goals"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/pricing"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/valuation"
)

// Server wires the use cases into an HTTP handler.
type Server struct {
	auth    *auth.Service
	goals   *goals.Service
	pricing *pricing.Service
	stats   *aggregation.Service
	channel http.Handler
	log     *logrus.Logger
	router  *mux.Router
}

// NewServer creates a new Server instance and builds its routes.
func NewServer(
	authService *auth.Service,
	goalsService *goals.Service,
	pricingService *pricing.Service,
	statsService *aggregation.Service,
	channel http.Handler,
	log *logrus.Logger,
) *Server {
	s := &Server{
		auth:    authService,
		goals:   goalsService,
		pricing: pricingService,
		stats:   statsService,
		channel: channel,
		log:     log,
	}

	r := mux.NewRouter()
	r.Use(corsMiddleware, s.requestLogger)

	// Preflight requests must match a route for the CORS middleware to run;
	// the middleware answers them before this handler is reached.
	r.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodOptions)

	// Public routes
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/register-admin", s.handleRegisterAdmin).Methods(http.MethodPost)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/token/refresh", s.handleRefresh).Methods(http.MethodPost)

	// Websocket: receiving price updates needs no auth
	r.Handle("/ws/prices", channel).Methods(http.MethodGet)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(s.authMiddleware)
	protected.HandleFunc("/assets", s.handleListAssets).Methods(http.MethodGet)
	protected.HandleFunc("/assets", s.handleCreateAsset).Methods(http.MethodPost)
	protected.HandleFunc("/assets/{id}", s.handleGetAsset).Methods(http.MethodGet)
	protected.HandleFunc("/assets/{id}/update_price", s.handleUpdatePrice).Methods(http.MethodPost)
	protected.HandleFunc("/goals", s.handleListGoals).Methods(http.MethodGet)
	protected.HandleFunc("/goals", s.handleCreateGoal).Methods(http.MethodPost)
	protected.HandleFunc("/goals/{id}", s.handleGetGoal).Methods(http.MethodGet)
	protected.HandleFunc("/goals/{id}", s.handleUpdateGoal).Methods(http.MethodPut)
	protected.HandleFunc("/goals/{id}", s.handleDeleteGoal).Methods(http.MethodDelete)
	protected.HandleFunc("/investments", s.handleListPurchases).Methods(http.MethodGet)
	protected.HandleFunc("/investments", s.handleCreatePurchase).Methods(http.MethodPost)
	protected.HandleFunc("/investments/{id}", s.handleGetPurchase).Methods(http.MethodGet)
	protected.HandleFunc("/investments/{id}", s.handleDeletePurchase).Methods(http.MethodDelete)
	protected.HandleFunc("/overall-goal-stats", s.handleOverallStats).Methods(http.MethodGet)

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, false)
}

func (s *Server) handleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	s.register(w, r, true)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, dataAdmin bool) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	cred := auth.Credentials{Username: req.Username, Email: req.Email, Password: req.Password}
	var (
		user *domain.User
		err  error
	)
	if dataAdmin {
		user, err = s.auth.RegisterAdmin(r.Context(), cred)
	} else {
		user, err = s.auth.Register(r.Context(), cred)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":       user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"is_data_admin": user.IsDataAdmin,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"access":   token.AccessToken,
		"user_id":  token.UserID,
		"username": token.Username,
		"email":    token.Email,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	refreshed, err := s.auth.Refresh(r.Context(), req.Token)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"access": refreshed})
}

// --- assets ---

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.pricing.ListAssets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, toAssetResponse(a))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string          `json:"name"`
		Ticker       string          `json:"ticker"`
		Category     string          `json:"category"`
		CurrentPrice decimal.Decimal `json:"current_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	asset, err := s.pricing.CreateAsset(r.Context(), sessionFrom(r), pricing.CreateAssetInput{
		Name:         req.Name,
		Ticker:       req.Ticker,
		Category:     domain.AssetCategory(req.Category),
		CurrentPrice: req.CurrentPrice,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAssetResponse(asset))
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	asset, err := s.pricing.GetAsset(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAssetResponse(asset))
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req struct {
		NewPrice decimal.Decimal `json:"new_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	quote, err := s.pricing.SetPrice(r.Context(), sessionFrom(r), id, req.NewPrice)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"asset_id":  quote.AssetID.String(),
		"new_price": quote.Price.StringFixed(2),
		"timestamp": quote.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// --- goals ---

type goalRequest struct {
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	AssetID             *uuid.UUID      `json:"asset_id"`
	TargetAmount        decimal.Decimal `json:"target_amount"`
	YearsToInvest       int             `json:"years_to_invest"`
	MonthlyContribution decimal.Decimal `json:"monthly_contribution"`
}

func (req goalRequest) toInput() goals.CreateGoalInput {
	return goals.CreateGoalInput{
		Name:                req.Name,
		Category:            domain.AssetCategory(req.Category),
		AssetID:             req.AssetID,
		TargetAmount:        req.TargetAmount,
		YearsToInvest:       req.YearsToInvest,
		MonthlyContribution: req.MonthlyContribution,
	}
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	list, err := s.goals.ListGoals(r.Context(), session)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]goalResponse, 0, len(list))
	for _, g := range list {
		stats, err := s.stats.GoalStats(r.Context(), g)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, toGoalResponse(g, stats))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	goal, err := s.goals.CreateGoal(r.Context(), sessionFrom(r), req.toInput())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toGoalResponse(goal, aggregation.GoalStats{}))
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	goal, err := s.goals.GetGoal(r.Context(), sessionFrom(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	stats, err := s.stats.GoalStats(r.Context(), goal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGoalResponse(goal, stats))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	goal, err := s.goals.UpdateGoal(r.Context(), sessionFrom(r), id, req.toInput())
	if err != nil {
		s.writeError(w, err)
		return
	}

	stats, err := s.stats.GoalStats(r.Context(), goal)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toGoalResponse(goal, stats))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.goals.DeleteGoal(r.Context(), sessionFrom(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- purchases ---

func (s *Server) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := s.goals.ListPurchases(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	quotes := make(map[uuid.UUID]valuation.Quote)
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		q, err := s.quoteFor(r, p, quotes)
		if err != nil {
			s.writeError(w, err)
			return
		}
		out = append(out, toPurchaseResponse(p, valuation.Valuate(p, q)))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoalID        uuid.UUID       `json:"goal"`
		AssetID       *uuid.UUID      `json:"asset_id"`
		Date          string          `json:"date"`
		PurchasePrice decimal.Decimal `json:"purchase_price"`
		Quantity      decimal.Decimal `json:"quantity"`
		Notes         string          `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidValue))
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidValue))
		return
	}

	purchase, err := s.goals.AddPurchase(r.Context(), sessionFrom(r), goals.AddPurchaseInput{
		GoalID:        req.GoalID,
		AssetID:       req.AssetID,
		Date:          date,
		PurchasePrice: req.PurchasePrice,
		Quantity:      req.Quantity,
		Notes:         req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	q, err := s.quoteFor(r, purchase, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toPurchaseResponse(purchase, valuation.Valuate(purchase, q)))
}

func (s *Server) handleGetPurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	purchase, err := s.goals.GetPurchase(r.Context(), sessionFrom(r), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q, err := s.quoteFor(r, purchase, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPurchaseResponse(purchase, valuation.Valuate(purchase, q)))
}

func (s *Server) handleDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.goals.DeletePurchase(r.Context(), sessionFrom(r), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- stats ---

func (s *Server) handleOverallStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.PortfolioStats(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPortfolioStatsResponse(stats))
}

// quoteFor resolves the valuation quote for one purchase, optionally caching
// lookups in the supplied map. A deleted asset yields the missing quote.
func (s *Server) quoteFor(r *http.Request, p *domain.Purchase, cache map[uuid.UUID]valuation.Quote) (valuation.Quote, error) {
	if p.AssetID == nil {
		return valuation.MissingQuote, nil
	}
	if cache != nil {
		if q, ok := cache[*p.AssetID]; ok {
			return q, nil
		}
	}

	q := valuation.MissingQuote
	asset, err := s.pricing.GetAsset(r.Context(), *p.AssetID)
	if err == nil {
		q = valuation.Quote{Price: asset.CurrentPrice}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return valuation.Quote{}, err
	}

	if cache != nil {
		cache[*p.AssetID] = q
	}
	return q, nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id", domain.ErrInvalidValue)
	}
	return id, nil
}
