package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subtrack/internal/core"
)

// maxReminderDays bounds how far ahead a reminder can be configured,
// which also bounds the scan window.
const maxReminderDays = 7

// ReminderScanner periodically finds subscriptions whose next charge is
// one of the user's configured reminder distances away and publishes a
// reminder event for each. Delivery is the consumer's concern.
type ReminderScanner struct {
	subs     SubscriptionStore
	settings SettingsStore
	pub      ReminderPublisher
	logger   *slog.Logger
	today    func() core.Date
}

func NewReminderScanner(subs SubscriptionStore, settings SettingsStore, pub ReminderPublisher, logger *slog.Logger) *ReminderScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderScanner{
		subs:     subs,
		settings: settings,
		pub:      pub,
		logger:   logger,
		today:    core.Today,
	}
}

// ScanOnce runs a single pass and returns how many reminders were
// published. Per-user settings decide which distances fire; paused
// subscriptions never appear because the store filters them out.
func (r *ReminderScanner) ScanOnce(ctx context.Context) (int, error) {
	today := r.today()
	subs, err := r.subs.ListActiveDueBetween(ctx, today, today.AddDays(maxReminderDays))
	if err != nil {
		return 0, fmt.Errorf("list due subscriptions: %w", err)
	}

	settingsByUser := make(map[int64]core.Settings)
	published := 0
	for _, sub := range subs {
		st, ok := settingsByUser[sub.UserID]
		if !ok {
			st, err = r.settings.Get(ctx, sub.UserID)
			if err != nil {
				r.logger.Warn("load settings failed", "user_id", sub.UserID, "error", err)
				continue
			}
			settingsByUser[sub.UserID] = st
		}
		if !st.ReminderEnabled {
			continue
		}
		days := today.DaysUntil(sub.NextDate)
		if !containsInt(st.ReminderDays, days) {
			continue
		}
		ev := ReminderEvent{
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			Name:           sub.Name,
			Price:          sub.Price,
			NextDate:       sub.NextDate,
			DaysLeft:       days,
		}
		if err := r.pub.PublishReminder(ctx, ev); err != nil {
			r.logger.Error("publish reminder failed",
				"user_id", sub.UserID, "subscription_id", sub.ID, "error", err)
			continue
		}
		published++
	}
	return published, nil
}

// Run scans on a fixed interval until the context is cancelled. One
// pass runs immediately on start.
func (r *ReminderScanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := r.ScanOnce(ctx)
		if err != nil {
			r.logger.Error("reminder scan failed", "error", err)
		} else {
			r.logger.Info("reminder scan complete", "published", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
