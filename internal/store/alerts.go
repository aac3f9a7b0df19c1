package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cryptosim/cryptosim/internal/model"
)

const (
	_queryAlert = `SELECT id, user_id, account_id, symbol, kind, percent_change, target_price,
							initial_price, active, notify_status, created_at, fired_at
						FROM alerts WHERE id = $1`
	_queryActiveAlerts = `SELECT id, user_id, account_id, symbol, kind, percent_change, target_price,
							initial_price, active, notify_status, created_at, fired_at
						FROM alerts WHERE active = true`
	_insertAlert = `INSERT INTO alerts (id, user_id, account_id, symbol, kind, percent_change,
							target_price, initial_price, active, notify_status, created_at, fired_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_updateAlert = `UPDATE alerts SET active = $1, notify_status = $2, fired_at = $3 WHERE id = $4`
	_deleteAlert = "DELETE FROM alerts WHERE id = $1"
)

func (s *Store) Alert(ctx context.Context, id string) (model.Alert, error) {
	var a model.Alert
	if err := s.db.GetContext(ctx, &a, _queryAlert, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, fmt.Errorf("%w: %s", model.ErrAlertNotFound, id)
		}
		return a, fmt.Errorf("%w: can't query alert", err)
	}
	return a, nil
}

func (s *Store) ActiveAlerts(ctx context.Context) ([]model.Alert, error) {
	var alerts []model.Alert
	if err := s.db.SelectContext(ctx, &alerts, _queryActiveAlerts); err != nil {
		return nil, fmt.Errorf("%w: can't query active alerts", err)
	}
	return alerts, nil
}

func (s *Store) InsertAlert(ctx context.Context, a model.Alert) error {
	if _, err := s.db.ExecContext(ctx, _insertAlert,
		a.ID, a.UserID, a.AccountID, a.Symbol, a.Kind, a.PercentChange,
		a.TargetPrice, a.InitialPrice, a.Active, a.NotifyStatus, a.CreatedAt, a.FiredAt,
	); err != nil {
		return fmt.Errorf("%w: can't insert alert", err)
	}
	return nil
}

func (s *Store) SaveAlert(ctx context.Context, a model.Alert) error {
	res, err := s.db.ExecContext(ctx, _updateAlert, a.Active, a.NotifyStatus, a.FiredAt, a.ID)
	if err != nil {
		return fmt.Errorf("%w: can't update alert", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", model.ErrAlertNotFound, a.ID)
	}
	return nil
}

func (s *Store) DeleteAlert(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, _deleteAlert, id)
	if err != nil {
		return fmt.Errorf("%w: can't delete alert", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", model.ErrAlertNotFound, id)
	}
	return nil
}
