package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cryptosim/cryptosim/internal/alert"
	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/cryptosim/cryptosim/internal/trade"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sweeper lets operators trigger an evaluation pass without waiting for
// the timer.
type Sweeper interface {
	RunSweep(ctx context.Context) error
	FiredSinceReset() int
	ResetFiredCount()
}

type Accounts interface {
	InsertAccount(ctx context.Context, a model.Account) error
}

type Handler struct {
	engine   *trade.Engine
	registry *alert.Registry
	sweeper  Sweeper
	accounts Accounts
	logger   logger.Logger
}

func NewHandler(engine *trade.Engine, registry *alert.Registry, sweeper Sweeper, accounts Accounts, logger logger.Logger) *Handler {
	return &Handler{
		engine:   engine,
		registry: registry,
		sweeper:  sweeper,
		accounts: accounts,
		logger:   logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/accounts", h.createAccount)
	r.Post("/trades/buy", h.buy)
	r.Post("/trades/sell", h.sell)
	r.Post("/alerts", h.createAlert)
	r.Post("/alerts/{id}/deactivate", h.deactivateAlert)
	r.Delete("/alerts/{id}", h.deleteAlert)
	r.Post("/sweep", h.runSweep)
	r.Get("/sweep/stats", h.sweepStats)
	r.Post("/sweep/stats/reset", h.resetSweepStats)

	return r
}

type createAccountRequest struct {
	OpeningBalance string `json:"opening_balance"`
}

type accountResponse struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := decimal.NewFromString(req.OpeningBalance)
	if err != nil || balance.IsNegative() {
		h.writeError(w, model.ErrInvalidArgument)
		return
	}

	account := model.Account{
		ID:        uuid.NewString(),
		UserID:    userID(r),
		Balance:   balance,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.accounts.InsertAccount(r.Context(), account); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, accountResponse{
		ID:      account.ID,
		Balance: account.Balance.String(),
	})
}

type tradeRequest struct {
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	USDAmount string `json:"usd_amount,omitempty"`
	Units     string `json:"units,omitempty"`
}

type tradeResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
	Rate   string `json:"rate"`
}

func (h *Handler) buy(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	usdAmount, err := decimal.NewFromString(req.USDAmount)
	if err != nil {
		h.writeError(w, model.ErrInvalidArgument)
		return
	}

	record, err := h.engine.Buy(r.Context(), req.AccountID, req.Symbol, usdAmount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toTradeResponse(record))
}

func (h *Handler) sell(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	units, err := decimal.NewFromString(req.Units)
	if err != nil {
		h.writeError(w, model.ErrInvalidArgument)
		return
	}

	record, err := h.engine.Sell(r.Context(), req.AccountID, req.Symbol, units)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toTradeResponse(record))
}

func toTradeResponse(record model.TradeRecord) tradeResponse {
	return tradeResponse{
		ID:     record.ID,
		Type:   string(record.Type),
		Symbol: record.Symbol,
		Amount: record.Amount.String(),
		Rate:   record.Rate.String(),
	}
}

type createAlertRequest struct {
	AccountID     string `json:"account_id"`
	Symbol        string `json:"symbol"`
	Kind          string `json:"kind"`
	PercentChange string `json:"percent_change,omitempty"`
	TargetPrice   string `json:"target_price,omitempty"`
}

type alertResponse struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Kind         string `json:"kind"`
	InitialPrice string `json:"initial_price"`
	Active       bool   `json:"active"`
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if !h.decode(w, r, &req) {
		return
	}

	params := alert.Params{Kind: model.AlertKind(req.Kind)}
	if req.PercentChange != "" {
		pct, err := decimal.NewFromString(req.PercentChange)
		if err != nil {
			h.writeError(w, model.ErrInvalidAlertParams)
			return
		}
		params.PercentChange = &pct
	}
	if req.TargetPrice != "" {
		target, err := decimal.NewFromString(req.TargetPrice)
		if err != nil {
			h.writeError(w, model.ErrInvalidAlertParams)
			return
		}
		params.TargetPrice = &target
	}

	a, err := h.registry.Create(r.Context(), userID(r), req.AccountID, req.Symbol, params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, alertResponse{
		ID:           a.ID,
		Symbol:       a.Symbol,
		Kind:         string(a.Kind),
		InitialPrice: a.InitialPrice.String(),
		Active:       a.Active,
	})
}

func (h *Handler) deactivateAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Deactivate(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) runSweep(w http.ResponseWriter, r *http.Request) {
	if err := h.sweeper.RunSweep(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type sweepStatsResponse struct {
	Fired int `json:"fired"`
}

func (h *Handler) sweepStats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, sweepStatsResponse{Fired: h.sweeper.FiredSinceReset()})
}

func (h *Handler) resetSweepStats(w http.ResponseWriter, _ *http.Request) {
	h.sweeper.ResetFiredCount()
	w.WriteHeader(http.StatusNoContent)
}

// Authentication lives upstream; by the time a request lands here the
// gateway has resolved the session into this header.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, model.ErrInvalidArgument)
		return false
	}

	if err := sonic.Unmarshal(body, dst); err != nil {
		h.writeError(w, model.ErrInvalidArgument)
		return false
	}

	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.logger.Errorf("%s: can't marshal response", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.Warnf("%s: can't write response", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument),
		errors.Is(err, model.ErrInvalidAlertParams),
		errors.Is(err, model.ErrUnsupportedAlertKind):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, model.ErrAccountNotFound),
		errors.Is(err, model.ErrAlertNotFound),
		errors.Is(err, model.ErrInstrumentNotFound),
		errors.Is(err, model.ErrHoldingNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientBalance),
		errors.Is(err, model.ErrInsufficientHoldings):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
