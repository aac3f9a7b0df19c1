package pricefeed

import (
	"context"
	"fmt"

	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/shopspring/decimal"
)

type InstrumentStore interface {
	Instrument(ctx context.Context, symbol string) (model.Instrument, error)
}

// StoreSource answers price lookups from the instruments table, which the
// Refresher keeps current. An instrument whose price was never delivered
// (or expired to null) reports ErrPriceUnavailable, not a zero price.
type StoreSource struct {
	store InstrumentStore
}

func NewStoreSource(store InstrumentStore) *StoreSource {
	return &StoreSource{store: store}
}

func (s *StoreSource) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	instrument, err := s.store.Instrument(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if !instrument.CurrentPrice.Valid {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", model.ErrPriceUnavailable, symbol)
	}

	return instrument.CurrentPrice.Decimal, nil
}
