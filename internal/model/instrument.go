package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument is a tradable symbol with the latest quoted price. CurrentPrice
// is nullable: the feed may not have delivered a quote yet, or the upstream
// source may be down.
type Instrument struct {
	Symbol       string              `db:"symbol"`
	Name         string              `db:"name"`
	CurrentPrice decimal.NullDecimal `db:"current_price"`
	PricedAt     *time.Time          `db:"priced_at"`
}
