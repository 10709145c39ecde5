package services

import (
	"context"
	"errors"

	"subtrack/internal/core"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSubscriptionLimit = errors.New("subscription limit reached")
	ErrPendingExpired    = errors.New("pending entry expired or missing")
)

// SubscriptionStore is the persistence surface the service needs for
// subscriptions. The SQLite repository implements it.
type SubscriptionStore interface {
	Insert(ctx context.Context, sub *core.Subscription) (int64, error)
	Update(ctx context.Context, upd SubscriptionUpdate) error
	// Replace overwrites every user-editable column of an existing row.
	Replace(ctx context.Context, sub core.Subscription) error
	Delete(ctx context.Context, userID, id int64) error
	Get(ctx context.Context, userID, id int64) (core.Subscription, error)
	FindByName(ctx context.Context, userID int64, name string) (core.Subscription, error)
	ListByUser(ctx context.Context, userID int64) ([]core.Subscription, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	SetPaused(ctx context.Context, userID, id int64, paused bool) error
	// ListActiveDueBetween returns unpaused subscriptions across all
	// users with from <= next_date <= to.
	ListActiveDueBetween(ctx context.Context, from, to core.Date) ([]core.Subscription, error)
}

type PaymentStore interface {
	Append(ctx context.Context, p PaymentAppend) (int64, error)
	ListForYear(ctx context.Context, userID int64, year int) ([]core.Payment, error)
}

type SettingsStore interface {
	// Get returns stored settings, or defaults for an unknown user.
	Get(ctx context.Context, userID int64) (core.Settings, error)
	Put(ctx context.Context, userID int64, s core.Settings) error
}

// PendingStore parks quick-add candidates waiting for a duplicate
// decision. Entries are owner-scoped and expire on their own; an
// expired or foreign key reads as a miss.
type PendingStore interface {
	Put(userID int64, cand core.QuickAddCandidate) (key string)
	Get(userID int64, key string) (core.QuickAddCandidate, bool)
	Delete(key string)
}

// PaymentEvent is emitted whenever a payment lands in the history, so
// downstream consumers (the ledger export) can react.
type PaymentEvent struct {
	UserID         int64      `json:"user_id"`
	SubscriptionID int64      `json:"subscription_id"`
	Name           string     `json:"name"`
	Amount         core.Money `json:"amount"`
	PaidOn         core.Date  `json:"paid_on"`
}

// ReminderEvent notifies that a subscription charge is coming up.
type ReminderEvent struct {
	UserID         int64      `json:"user_id"`
	SubscriptionID int64      `json:"subscription_id"`
	Name           string     `json:"name"`
	Price          core.Money `json:"price"`
	NextDate       core.Date  `json:"next_date"`
	DaysLeft       int        `json:"days_left"`
}

type PaymentPublisher interface {
	PublishPaymentRecorded(ctx context.Context, ev PaymentEvent) error
}

type ReminderPublisher interface {
	PublishReminder(ctx context.Context, ev ReminderEvent) error
}
