package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the durable state a single trade reads and writes. All calls
// made inside one Transact closure commit or roll back together.
type Ledger interface {
	Account(ctx context.Context, id string) (model.Account, error)
	Holding(ctx context.Context, accountID, symbol string) (model.Holding, error)
	SaveAccount(ctx context.Context, a model.Account) error
	SaveHolding(ctx context.Context, h model.Holding) error
	AppendTradeRecord(ctx context.Context, r model.TradeRecord) error
}

type Store interface {
	Transact(ctx context.Context, fn func(l Ledger) error) error
}

type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// _persistScale is the fractional precision of persisted amounts. Rounding
// happens once, on the value being saved; intermediate math keeps the full
// decimal division precision.
const _persistScale = 10

type Engine struct {
	store  Store
	prices PriceSource
	logger logger.Logger

	locks *accountLocks
}

func NewEngine(store Store, prices PriceSource, logger logger.Logger) *Engine {
	return &Engine{
		store:  store,
		prices: prices,
		logger: logger,
		locks:  newAccountLocks(),
	}
}

// Buy debits usdAmount from the account and adds usdAmount/price units to
// the holding, re-weighting its average cost. Balance, holding and the BUY
// ledger row commit as one unit.
func (e *Engine) Buy(ctx context.Context, accountID, symbol string, usdAmount decimal.Decimal) (model.TradeRecord, error) {
	var record model.TradeRecord

	if accountID == "" || symbol == "" {
		return record, fmt.Errorf("%w: empty account id or symbol", model.ErrInvalidArgument)
	}
	if !usdAmount.IsPositive() {
		return record, fmt.Errorf("%w: buy amount must be positive", model.ErrInvalidArgument)
	}

	price, err := e.prices.GetPrice(ctx, symbol)
	if err != nil {
		return record, err
	}

	units := usdAmount.Div(price)

	unlock := e.locks.lock(accountID)
	defer unlock()

	err = e.store.Transact(ctx, func(l Ledger) error {
		account, err := l.Account(ctx, accountID)
		if err != nil {
			return err
		}

		if account.Balance.LessThan(usdAmount) {
			return fmt.Errorf("%w: balance %s, needed %s",
				model.ErrInsufficientBalance, account.Balance, usdAmount)
		}

		holding, err := e.applyBuy(ctx, l, account, symbol, units, price)
		if err != nil {
			return err
		}

		account.Balance = account.Balance.Sub(usdAmount).Round(_persistScale)
		account.UpdatedAt = time.Now().UTC()
		if err := l.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("%w: can't save account", err)
		}

		record = model.TradeRecord{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Symbol:    holding.Symbol,
			Type:      model.TradeBuy,
			Amount:    units.Round(_persistScale),
			Rate:      price,
			CreatedAt: time.Now().UTC(),
		}
		if err := l.AppendTradeRecord(ctx, record); err != nil {
			return fmt.Errorf("%w: can't append trade record", err)
		}

		return nil
	})
	if err != nil {
		return model.TradeRecord{}, err
	}

	e.logger.Infof("buy %s %s units of %s at %s", accountID, units, symbol, price)
	return record, nil
}

func (e *Engine) applyBuy(ctx context.Context, l Ledger, account model.Account, symbol string, units, price decimal.Decimal) (model.Holding, error) {
	holding, err := l.Holding(ctx, account.ID, symbol)
	switch {
	case err == nil:
		// Weighted-average cost over the old position and the new units.
		// The old term drops out for an emptied holding so a stale
		// average cost never leaks into the new basis.
		if holding.Amount.IsZero() {
			holding.AverageCost = price
		} else {
			oldValue := holding.Amount.Mul(holding.AverageCost)
			newValue := units.Mul(price)
			holding.AverageCost = oldValue.Add(newValue).Div(holding.Amount.Add(units))
		}
		holding.Amount = holding.Amount.Add(units)
	case errors.Is(err, model.ErrHoldingNotFound):
		holding = model.Holding{
			ID:          uuid.NewString(),
			AccountID:   account.ID,
			Symbol:      symbol,
			Amount:      units,
			AverageCost: price,
		}
	default:
		return model.Holding{}, err
	}

	holding.Amount = holding.Amount.Round(_persistScale)
	holding.AverageCost = holding.AverageCost.Round(_persistScale)
	holding.UpdatedAt = time.Now().UTC()
	if err := l.SaveHolding(ctx, holding); err != nil {
		return model.Holding{}, fmt.Errorf("%w: can't save holding", err)
	}

	return holding, nil
}

// Sell credits units*price to the balance and decrements the holding. The
// average cost of the remaining position is left untouched: selling never
// re-bases cost.
func (e *Engine) Sell(ctx context.Context, accountID, symbol string, units decimal.Decimal) (model.TradeRecord, error) {
	var record model.TradeRecord

	if accountID == "" || symbol == "" {
		return record, fmt.Errorf("%w: empty account id or symbol", model.ErrInvalidArgument)
	}
	if !units.IsPositive() {
		return record, fmt.Errorf("%w: sell units must be positive", model.ErrInvalidArgument)
	}

	price, err := e.prices.GetPrice(ctx, symbol)
	if err != nil {
		return record, err
	}

	unlock := e.locks.lock(accountID)
	defer unlock()

	err = e.store.Transact(ctx, func(l Ledger) error {
		account, err := l.Account(ctx, accountID)
		if err != nil {
			return err
		}

		holding, err := l.Holding(ctx, account.ID, symbol)
		if err != nil {
			return err
		}

		if units.GreaterThan(holding.Amount) {
			return fmt.Errorf("%w: holding %s, requested %s",
				model.ErrInsufficientHoldings, holding.Amount, units)
		}

		holding.Amount = holding.Amount.Sub(units).Round(_persistScale)
		holding.UpdatedAt = time.Now().UTC()
		if err := l.SaveHolding(ctx, holding); err != nil {
			return fmt.Errorf("%w: can't save holding", err)
		}

		proceeds := units.Mul(price)
		account.Balance = account.Balance.Add(proceeds).Round(_persistScale)
		account.UpdatedAt = time.Now().UTC()
		if err := l.SaveAccount(ctx, account); err != nil {
			return fmt.Errorf("%w: can't save account", err)
		}

		record = model.TradeRecord{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Symbol:    symbol,
			Type:      model.TradeSell,
			Amount:    units.Round(_persistScale),
			Rate:      price,
			CreatedAt: time.Now().UTC(),
		}
		if err := l.AppendTradeRecord(ctx, record); err != nil {
			return fmt.Errorf("%w: can't append trade record", err)
		}

		return nil
	})
	if err != nil {
		return model.TradeRecord{}, err
	}

	e.logger.Infof("sell %s %s units of %s at %s", accountID, units, symbol, price)
	return record, nil
}
