package pricefeed

import (
	"context"
	"time"

	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/shopspring/decimal"
)

type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type RefresherStore interface {
	Instruments(ctx context.Context) ([]model.Instrument, error)
	SaveInstrumentPrice(ctx context.Context, symbol string, price decimal.Decimal, at time.Time) error
}

// Refresher polls the quote API for every known instrument and writes the
// prices back, keeping StoreSource lookups current. A symbol that fails to
// refresh keeps its previous price; one symbol's failure doesn't stop the
// rest of the pass.
type Refresher struct {
	store  RefresherStore
	quoter Quoter
	logger logger.Logger

	interval time.Duration
}

func NewRefresher(store RefresherStore, quoter Quoter, interval time.Duration, logger logger.Logger) *Refresher {
	return &Refresher{
		store:    store,
		quoter:   quoter,
		interval: interval,
		logger:   logger,
	}
}

func (r *Refresher) Run(ctx context.Context) {
	if err := r.RefreshAll(ctx); err != nil {
		r.logger.Errorf("%s: initial price refresh failed", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RefreshAll(ctx); err != nil {
				r.logger.Errorf("%s: price refresh failed", err)
			}
		}
	}
}

func (r *Refresher) RefreshAll(ctx context.Context) error {
	instruments, err := r.store.Instruments(ctx)
	if err != nil {
		return err
	}

	for _, instrument := range instruments {
		price, err := r.quoter.GetQuote(ctx, instrument.Symbol)
		if err != nil {
			r.logger.Warnf("%s: can't refresh price for %s", err, instrument.Symbol)
			continue
		}

		if err := r.store.SaveInstrumentPrice(ctx, instrument.Symbol, price, time.Now().UTC()); err != nil {
			r.logger.Warnf("%s: can't save price for %s", err, instrument.Symbol)
		}
	}

	return nil
}
