package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Month Period = "month"
	Year  Period = "year"
	Week  Period = "week"

	DefaultPeriod = Month

	MaxNameLength           = 100
	MaxSubscriptionsPerUser = 50

	// MaxPrice is the largest accepted amount, in whole currency units.
	MaxPrice      = 1_000_000
	MaxPriceCents = MaxPrice * 100
)

type (
	Period string

	// Subscription is a recurring charge tracked for a single user.
	// Price is stored packed (see PackPrice) by the persistence layer.
	Subscription struct {
		ID         int64
		UserID     int64
		Name       string
		Price      Money
		NextDate   Date
		Period     Period
		LastCharge Date // zero when the user never told us a charge date
		Category   string
		Paused     bool
		CreatedAt  time.Time
	}

	// Payment is one entry in a subscription's charge history.
	Payment struct {
		ID             int64
		UserID         int64
		SubscriptionID int64
		Amount         Money
		PaidOn         Date
	}

	// Settings holds per-user preferences.
	Settings struct {
		DefaultCurrency Currency
		ReminderEnabled bool
		ReminderDays    []int
		ReminderHour    int
	}

	// QuickAddCandidate is the result of tokenizing a one-line quick add.
	// It is immutable: either persisted or discarded, never mutated.
	QuickAddCandidate struct {
		Name       string
		Price      Money
		ChargeDate Date
		Category   string
	}
)

var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrOutOfRange      = errors.New("amount out of range")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long")
)

func (p Period) Validate() error {
	switch p {
	case Month, Year, Week:
		return nil
	}
	return ErrInvalidPeriod
}

func (s Subscription) Validate() error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := s.Price.Validate(); err != nil {
		return err
	}
	if err := s.Period.Validate(); err != nil {
		return err
	}
	if s.NextDate.IsZero() {
		return errors.New("next date cannot be zero")
	}
	return nil
}

func (c QuickAddCandidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if err := c.Price.Validate(); err != nil {
		return err
	}
	if c.ChargeDate.IsZero() {
		return errors.New("charge date cannot be zero")
	}
	return nil
}

// DefaultSettings are used for users who never touched their preferences.
func DefaultSettings() Settings {
	return Settings{
		DefaultCurrency: DefaultCurrency,
		ReminderEnabled: true,
		ReminderDays:    []int{1, 3},
		ReminderHour:    9,
	}
}
