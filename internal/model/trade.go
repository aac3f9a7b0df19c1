package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

func (t TradeType) Valid() bool {
	return t == TradeBuy || t == TradeSell
}

// TradeRecord is an append-only ledger row. It is written exactly once per
// successful trade and never mutated afterwards.
type TradeRecord struct {
	ID        string          `db:"id"`
	AccountID string          `db:"account_id"`
	Symbol    string          `db:"symbol"`
	Type      TradeType       `db:"trade_type"`
	Amount    decimal.Decimal `db:"amount"` // units of the instrument
	Rate      decimal.Decimal `db:"rate"`   // execution price per unit
	CreatedAt time.Time       `db:"created_at"`
}
