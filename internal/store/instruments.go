package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/shopspring/decimal"
)

const (
	_queryInstrument  = "SELECT symbol, name, current_price, priced_at FROM instruments WHERE symbol = $1"
	_queryInstruments = "SELECT symbol, name, current_price, priced_at FROM instruments ORDER BY symbol"
	_updatePrice      = "UPDATE instruments SET current_price = $1, priced_at = $2 WHERE symbol = $3"
)

func (s *Store) Instrument(ctx context.Context, symbol string) (model.Instrument, error) {
	var i model.Instrument
	if err := s.db.GetContext(ctx, &i, _queryInstrument, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return i, fmt.Errorf("%w: %s", model.ErrInstrumentNotFound, symbol)
		}
		return i, fmt.Errorf("%w: can't query instrument", err)
	}
	return i, nil
}

func (s *Store) Instruments(ctx context.Context) ([]model.Instrument, error) {
	var instruments []model.Instrument
	if err := s.db.SelectContext(ctx, &instruments, _queryInstruments); err != nil {
		return nil, fmt.Errorf("%w: can't query instruments", err)
	}
	return instruments, nil
}

func (s *Store) SaveInstrumentPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error {
	res, err := s.db.ExecContext(ctx, _updatePrice, price, at, symbol)
	if err != nil {
		return fmt.Errorf("%w: can't update instrument price", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", model.ErrInstrumentNotFound, symbol)
	}
	return nil
}
