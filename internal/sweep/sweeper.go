package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/shopspring/decimal"
)

type Alerts interface {
	ActiveAlerts(ctx context.Context) ([]model.Alert, error)
	SaveAlert(ctx context.Context, a model.Alert) error
}

type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, symbol string, currentPrice decimal.Decimal, a model.Alert) error
}

// Sweeper periodically evaluates every active alert against the current
// price and fires the ones that crossed their threshold. A fired alert is
// deactivated exactly once; delivery state is tracked separately so a
// failed notification is visible instead of silently dropped.
type Sweeper struct {
	alerts   Alerts
	prices   PriceSource
	notifier Notifier
	logger   logger.Logger

	interval time.Duration
	fired    Counter

	// Serializes sweeps: a timer tick and a manual RunSweep can't overlap,
	// which would risk double-notification.
	mu sync.Mutex
}

func NewSweeper(alerts Alerts, prices PriceSource, notifier Notifier, interval time.Duration, logger logger.Logger) *Sweeper {
	return &Sweeper{
		alerts:   alerts,
		prices:   prices,
		notifier: notifier,
		interval: interval,
		logger:   logger,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunSweep(ctx); err != nil {
				s.logger.Errorf("%s: sweep failed", err)
			}
		}
	}
}

// RunSweep evaluates all active alerts once. Normally timer-invoked, but
// exposed for manual and test invocation. Per-alert failures are logged and
// skipped; they never abort the rest of the batch.
func (s *Sweeper) RunSweep(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.alerts.ActiveAlerts(ctx)
	if err != nil {
		return fmt.Errorf("%w: can't load active alerts", err)
	}

	for _, a := range alerts {
		if !a.Active {
			continue
		}

		if err := s.evaluate(ctx, a); err != nil {
			s.logger.Warnf("%s: skipping alert %s", err, a.ID)
		}
	}

	return nil
}

func (s *Sweeper) evaluate(ctx context.Context, a model.Alert) error {
	price, err := s.prices.GetPrice(ctx, a.Symbol)
	if err != nil {
		return fmt.Errorf("%w: no price for %s", err, a.Symbol)
	}

	fire, err := shouldFire(a, price)
	if err != nil {
		return err
	}
	if !fire {
		return nil
	}

	// Mark fired before attempting delivery so the alert can never fire
	// twice, even if the process dies mid-notification.
	now := time.Now().UTC()
	a.Active = false
	a.NotifyStatus = model.NotifyPending
	a.FiredAt = &now
	if err := s.alerts.SaveAlert(ctx, a); err != nil {
		return fmt.Errorf("%w: can't mark alert fired", err)
	}

	if err := s.notifier.Notify(ctx, a.UserID, a.Symbol, price, a); err != nil {
		s.logger.Errorf("%s: can't notify user %s for alert %s", err, a.UserID, a.ID)
		a.NotifyStatus = model.NotifyFailed
	} else {
		a.NotifyStatus = model.NotifySent
	}

	if err := s.alerts.SaveAlert(ctx, a); err != nil {
		return fmt.Errorf("%w: can't save notify status", err)
	}

	s.fired.Increment()
	s.logger.Infof("alert %s fired for %s at price %s, delivery %s", a.ID, a.Symbol, price, a.NotifyStatus)
	return nil
}

// FiredSinceReset reports how many alerts fired since the counter was last
// reset.
func (s *Sweeper) FiredSinceReset() int {
	return s.fired.Read()
}

func (s *Sweeper) ResetFiredCount() {
	s.fired.Reset()
}

// shouldFire applies the trigger rules. Thresholds are inclusive: a
// percentage alert at +10 from 100 fires at exactly 110, a price alert
// fires at exactly its target.
func shouldFire(a model.Alert, price decimal.Decimal) (bool, error) {
	switch a.Kind {
	case model.AlertPercentage:
		if !a.PercentChange.Valid {
			return false, fmt.Errorf("%w: percentage alert without percent change", model.ErrInvalidAlertParams)
		}

		pct := a.PercentChange.Decimal
		ratio := pct.Abs().Div(decimal.NewFromInt(100))
		if pct.IsPositive() {
			threshold := a.InitialPrice.Mul(decimal.NewFromInt(1).Add(ratio))
			return price.GreaterThanOrEqual(threshold), nil
		}
		threshold := a.InitialPrice.Mul(decimal.NewFromInt(1).Sub(ratio))
		return price.LessThanOrEqual(threshold), nil

	case model.AlertPrice:
		if !a.TargetPrice.Valid {
			return false, fmt.Errorf("%w: price alert without target price", model.ErrInvalidAlertParams)
		}
		return price.GreaterThanOrEqual(a.TargetPrice.Decimal), nil

	default:
		return false, fmt.Errorf("%w: %q", model.ErrUnsupportedAlertKind, a.Kind)
	}
}
