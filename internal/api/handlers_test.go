package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/cryptosim/cryptosim/internal/alert"
	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/cryptosim/cryptosim/internal/trade"
	"github.com/shopspring/decimal"
)

type memStore struct {
	accounts map[string]model.Account
	holdings map[string]model.Holding
	records  []model.TradeRecord
	alerts   map[string]model.Alert
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]model.Account),
		holdings: make(map[string]model.Holding),
		alerts:   make(map[string]model.Alert),
	}
}

func (s *memStore) Transact(_ context.Context, fn func(l trade.Ledger) error) error {
	return fn(s)
}

func (s *memStore) Account(_ context.Context, id string) (model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrAccountNotFound, id)
	}
	return a, nil
}

func (s *memStore) Holding(_ context.Context, accountID, symbol string) (model.Holding, error) {
	h, ok := s.holdings[accountID+"/"+symbol]
	if !ok {
		return model.Holding{}, fmt.Errorf("%w: %s/%s", model.ErrHoldingNotFound, accountID, symbol)
	}
	return h, nil
}

func (s *memStore) InsertAccount(_ context.Context, a model.Account) error {
	s.accounts[a.ID] = a
	return nil
}

func (s *memStore) SaveAccount(_ context.Context, a model.Account) error {
	s.accounts[a.ID] = a
	return nil
}

func (s *memStore) SaveHolding(_ context.Context, h model.Holding) error {
	s.holdings[h.AccountID+"/"+h.Symbol] = h
	return nil
}

func (s *memStore) AppendTradeRecord(_ context.Context, r model.TradeRecord) error {
	s.records = append(s.records, r)
	return nil
}

func (s *memStore) Alert(_ context.Context, id string) (model.Alert, error) {
	a, ok := s.alerts[id]
	if !ok {
		return model.Alert{}, fmt.Errorf("%w: %s", model.ErrAlertNotFound, id)
	}
	return a, nil
}

func (s *memStore) InsertAlert(_ context.Context, a model.Alert) error {
	s.alerts[a.ID] = a
	return nil
}

func (s *memStore) SaveAlert(_ context.Context, a model.Alert) error {
	s.alerts[a.ID] = a
	return nil
}

func (s *memStore) DeleteAlert(_ context.Context, id string) error {
	delete(s.alerts, id)
	return nil
}

type staticPrices map[string]string

func (p staticPrices) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := p[symbol]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", model.ErrPriceUnavailable, symbol)
	}
	return decimal.RequireFromString(price), nil
}

type noopSweeper struct {
	calls  int
	resets int
}

func (s *noopSweeper) RunSweep(context.Context) error {
	s.calls++
	return nil
}

func (s *noopSweeper) FiredSinceReset() int { return s.calls }

func (s *noopSweeper) ResetFiredCount() { s.resets++ }

func newTestServer(t *testing.T) (*httptest.Server, *memStore, *noopSweeper) {
	t.Helper()

	store := newMemStore()
	store.accounts["acc-1"] = model.Account{
		ID:      "acc-1",
		UserID:  "user-1",
		Balance: decimal.RequireFromString("1000"),
	}

	prices := staticPrices{"BTC": "100"}
	engine := trade.NewEngine(store, prices, logger.NopLogger{})
	registry := alert.NewRegistry(store, prices, logger.NopLogger{})
	sweeper := &noopSweeper{}

	handler := NewHandler(engine, registry, sweeper, store, logger.NopLogger{})
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)

	return srv, store, sweeper
}

func TestBuyEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)

	body := `{"account_id":"acc-1","symbol":"BTC","usd_amount":"200"}`
	resp, err := http.Post(srv.URL+"/trades/buy", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out tradeResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if out.Type != "BUY" || out.Amount != "2" {
		t.Errorf("unexpected trade response: %+v", out)
	}

	if !store.accounts["acc-1"].Balance.Equal(decimal.RequireFromString("800")) {
		t.Errorf("expected balance 800, got %s", store.accounts["acc-1"].Balance)
	}
}

func TestBuyEndpointInsufficientBalance(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"account_id":"acc-1","symbol":"BTC","usd_amount":"5000"}`
	resp, err := http.Post(srv.URL+"/trades/buy", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

func TestBuyEndpointUnknownSymbol(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"account_id":"acc-1","symbol":"DOGE","usd_amount":"10"}`
	resp, err := http.Post(srv.URL+"/trades/buy", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestCreateAndDeleteAlert(t *testing.T) {
	srv, store, _ := newTestServer(t)

	body := `{"account_id":"acc-1","symbol":"BTC","kind":"PRICE","target_price":"150"}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/alerts", strings.NewReader(body))
	req.Header.Set("X-User-ID", "user-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out alertResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %s", err)
	}
	if out.InitialPrice != "100" {
		t.Errorf("expected initial price 100, got %s", out.InitialPrice)
	}

	// A different user must not be able to delete it.
	del, _ := http.NewRequest(http.MethodDelete, srv.URL+"/alerts/"+out.ID, nil)
	del.Header.Set("X-User-ID", "user-2")
	delResp, err := http.DefaultClient.Do(del)
	if err != nil {
		t.Fatalf("delete: %s", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner, got %d", delResp.StatusCode)
	}

	del, _ = http.NewRequest(http.MethodDelete, srv.URL+"/alerts/"+out.ID, nil)
	del.Header.Set("X-User-ID", "user-1")
	delResp, err = http.DefaultClient.Do(del)
	if err != nil {
		t.Fatalf("delete: %s", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", delResp.StatusCode)
	}

	if len(store.alerts) != 0 {
		t.Error("alert still present after delete")
	}
}

func TestCreateAccountEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/accounts", strings.NewReader(`{"opening_balance":"500"}`))
	req.Header.Set("X-User-ID", "user-9")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var out accountResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %s", err)
	}

	created, ok := store.accounts[out.ID]
	if !ok {
		t.Fatal("account not persisted")
	}
	if created.UserID != "user-9" {
		t.Errorf("expected owner user-9, got %s", created.UserID)
	}
	if !created.Balance.Equal(decimal.RequireFromString("500")) {
		t.Errorf("expected balance 500, got %s", created.Balance)
	}
}

func TestManualSweepEndpoint(t *testing.T) {
	srv, _, sweeper := newTestServer(t)

	resp, err := http.Post(srv.URL+"/sweep", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("expected 202, got %d", resp.StatusCode)
	}
	if sweeper.calls != 1 {
		t.Errorf("expected one sweep invocation, got %d", sweeper.calls)
	}
}
