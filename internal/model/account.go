package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Balance   decimal.Decimal `db:"balance"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// Holding is the quantity and weighted-average cost basis of one instrument
// inside one account. Amount may reach exactly zero without the row being
// deleted; AverageCost is meaningless at zero amount and must never be used
// as a divisor.
type Holding struct {
	ID          string          `db:"id"`
	AccountID   string          `db:"account_id"`
	Symbol      string          `db:"symbol"`
	Amount      decimal.Decimal `db:"amount"`
	AverageCost decimal.Decimal `db:"average_cost"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
