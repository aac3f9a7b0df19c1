package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertKind string

const (
	AlertPercentage AlertKind = "PERCENTAGE"
	AlertPrice      AlertKind = "PRICE"
)

func (k AlertKind) Valid() bool {
	return k == AlertPercentage || k == AlertPrice
}

// NotifyStatus tracks delivery separately from the fired decision, so a
// failed webhook is visible and retryable instead of silently dropped.
type NotifyStatus string

const (
	NotifyNone    NotifyStatus = ""
	NotifyPending NotifyStatus = "pending"
	NotifySent    NotifyStatus = "sent"
	NotifyFailed  NotifyStatus = "failed"
)

// Alert fires at most once: Active transitions true -> false exactly once,
// either by the sweep or by an explicit user deactivation, and is never
// reactivated.
type Alert struct {
	ID            string              `db:"id"`
	UserID        string              `db:"user_id"`
	AccountID     string              `db:"account_id"`
	Symbol        string              `db:"symbol"`
	Kind          AlertKind           `db:"kind"`
	PercentChange decimal.NullDecimal `db:"percent_change"` // signed, PERCENTAGE only
	TargetPrice   decimal.NullDecimal `db:"target_price"`   // PRICE only
	InitialPrice  decimal.Decimal     `db:"initial_price"`  // baseline recorded at creation
	Active        bool                `db:"active"`
	NotifyStatus  NotifyStatus        `db:"notify_status"`
	CreatedAt     time.Time           `db:"created_at"`
	FiredAt       *time.Time          `db:"fired_at"`
}
