package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptosim/cryptosim/internal/logger"
	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Alerts interface {
	Alert(ctx context.Context, id string) (model.Alert, error)
	InsertAlert(ctx context.Context, a model.Alert) error
	SaveAlert(ctx context.Context, a model.Alert) error
	DeleteAlert(ctx context.Context, id string) error
}

type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Registry struct {
	alerts Alerts
	prices PriceSource
	logger logger.Logger
}

func NewRegistry(alerts Alerts, prices PriceSource, logger logger.Logger) *Registry {
	return &Registry{
		alerts: alerts,
		prices: prices,
		logger: logger,
	}
}

// Params carries the kind-specific threshold. Exactly one of the pointers
// is expected, matching Kind.
type Params struct {
	Kind          model.AlertKind
	PercentChange *decimal.Decimal // signed: positive fires on a rise, negative on a fall
	TargetPrice   *decimal.Decimal
}

// Create validates the threshold, snapshots the current price as the
// percentage baseline and stores the alert active.
func (r *Registry) Create(ctx context.Context, userID, accountID, symbol string, p Params) (model.Alert, error) {
	if userID == "" || accountID == "" || symbol == "" {
		return model.Alert{}, fmt.Errorf("%w: empty user, account or symbol", model.ErrInvalidArgument)
	}

	a := model.Alert{
		ID:        uuid.NewString(),
		UserID:    userID,
		AccountID: accountID,
		Symbol:    symbol,
		Kind:      p.Kind,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	switch p.Kind {
	case model.AlertPercentage:
		if p.PercentChange == nil || p.PercentChange.IsZero() {
			return model.Alert{}, fmt.Errorf("%w: percent change must be non-zero", model.ErrInvalidAlertParams)
		}
		a.PercentChange = decimal.NewNullDecimal(*p.PercentChange)
	case model.AlertPrice:
		if p.TargetPrice == nil || !p.TargetPrice.IsPositive() {
			return model.Alert{}, fmt.Errorf("%w: target price must be positive", model.ErrInvalidAlertParams)
		}
		a.TargetPrice = decimal.NewNullDecimal(*p.TargetPrice)
	default:
		return model.Alert{}, fmt.Errorf("%w: %q", model.ErrUnsupportedAlertKind, p.Kind)
	}

	price, err := r.prices.GetPrice(ctx, symbol)
	if err != nil {
		return model.Alert{}, err
	}
	a.InitialPrice = price

	if err := r.alerts.InsertAlert(ctx, a); err != nil {
		return model.Alert{}, fmt.Errorf("%w: can't insert alert", err)
	}

	r.logger.Infof("alert %s created for %s on %s", a.ID, userID, symbol)
	return a, nil
}

// Deactivate turns the alert off without removing it. Only the owner may
// do this.
func (r *Registry) Deactivate(ctx context.Context, userID, alertID string) error {
	a, err := r.owned(ctx, userID, alertID)
	if err != nil {
		return err
	}

	if !a.Active {
		return nil
	}

	a.Active = false
	if err := r.alerts.SaveAlert(ctx, a); err != nil {
		return fmt.Errorf("%w: can't save alert", err)
	}

	return nil
}

func (r *Registry) Delete(ctx context.Context, userID, alertID string) error {
	if _, err := r.owned(ctx, userID, alertID); err != nil {
		return err
	}

	if err := r.alerts.DeleteAlert(ctx, alertID); err != nil {
		return fmt.Errorf("%w: can't delete alert", err)
	}

	return nil
}

func (r *Registry) owned(ctx context.Context, userID, alertID string) (model.Alert, error) {
	if userID == "" || alertID == "" {
		return model.Alert{}, fmt.Errorf("%w: empty user or alert id", model.ErrInvalidArgument)
	}

	a, err := r.alerts.Alert(ctx, alertID)
	if err != nil {
		return model.Alert{}, err
	}

	if a.UserID != userID {
		return model.Alert{}, fmt.Errorf("%w: alert %s is not owned by %s", model.ErrUnauthorized, alertID, userID)
	}

	return a, nil
}
