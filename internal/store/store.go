package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cryptosim/cryptosim/internal/model"
	"github.com/cryptosim/cryptosim/internal/trade"
	"github.com/jmoiron/sqlx"
)

// Store is the postgres-backed ledger. Reads and writes outside Transact
// run on the pool directly; inside Transact they share one transaction.
type Store struct {
	db *sqlx.DB
	ledger
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:     db,
		ledger: ledger{ext: db},
	}
}

// Transact runs fn inside one sql transaction. Every ledger call made
// through fn's argument commits or rolls back as a unit.
func (s *Store) Transact(ctx context.Context, fn func(l trade.Ledger) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: can't begin transaction", err)
	}

	if err := fn(ledger{ext: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w: can't rollback after %s", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: can't commit transaction", err)
	}

	return nil
}

// ledger holds the queries shared between pool and transaction execution.
type ledger struct {
	ext sqlx.ExtContext
}

const (
	_queryAccount       = "SELECT id, user_id, balance, updated_at FROM accounts WHERE id = $1"
	_insertAccount      = "INSERT INTO accounts (id, user_id, balance, updated_at) VALUES ($1, $2, $3, $4)"
	_updateAccount      = "UPDATE accounts SET balance = $1, updated_at = $2 WHERE id = $3"
	_queryHolding       = "SELECT id, account_id, symbol, amount, average_cost, updated_at FROM holdings WHERE account_id = $1 AND symbol = $2"
	_upsertHolding      = `INSERT INTO holdings (id, account_id, symbol, amount, average_cost, updated_at)
							VALUES ($1, $2, $3, $4, $5, $6)
							ON CONFLICT (account_id, symbol)
							DO UPDATE SET
								amount = EXCLUDED.amount,
								average_cost = EXCLUDED.average_cost,
								updated_at = EXCLUDED.updated_at;`
	_insertTradeRecord = `INSERT INTO trade_records (id, account_id, symbol, trade_type, amount, rate, created_at)
							VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

func (l ledger) Account(ctx context.Context, id string) (model.Account, error) {
	var a model.Account
	if err := sqlx.GetContext(ctx, l.ext, &a, _queryAccount, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, fmt.Errorf("%w: %s", model.ErrAccountNotFound, id)
		}
		return a, fmt.Errorf("%w: can't query account", err)
	}
	return a, nil
}

func (l ledger) InsertAccount(ctx context.Context, a model.Account) error {
	if _, err := l.ext.ExecContext(ctx, _insertAccount, a.ID, a.UserID, a.Balance, a.UpdatedAt); err != nil {
		return fmt.Errorf("%w: can't insert account", err)
	}
	return nil
}

func (l ledger) SaveAccount(ctx context.Context, a model.Account) error {
	res, err := l.ext.ExecContext(ctx, _updateAccount, a.Balance, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("%w: can't update account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, a.ID)
	}
	return nil
}

func (l ledger) Holding(ctx context.Context, accountID, symbol string) (model.Holding, error) {
	var h model.Holding
	if err := sqlx.GetContext(ctx, l.ext, &h, _queryHolding, accountID, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return h, fmt.Errorf("%w: %s/%s", model.ErrHoldingNotFound, accountID, symbol)
		}
		return h, fmt.Errorf("%w: can't query holding", err)
	}
	return h, nil
}

func (l ledger) SaveHolding(ctx context.Context, h model.Holding) error {
	if _, err := l.ext.ExecContext(ctx, _upsertHolding,
		h.ID, h.AccountID, h.Symbol, h.Amount, h.AverageCost, h.UpdatedAt,
	); err != nil {
		return fmt.Errorf("%w: can't upsert holding", err)
	}
	return nil
}

func (l ledger) AppendTradeRecord(ctx context.Context, r model.TradeRecord) error {
	if _, err := l.ext.ExecContext(ctx, _insertTradeRecord,
		r.ID, r.AccountID, r.Symbol, r.Type, r.Amount, r.Rate, r.CreatedAt,
	); err != nil {
		return fmt.Errorf("%w: can't insert trade record", err)
	}
	return nil
}
