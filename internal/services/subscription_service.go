package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"subtrack/internal/core"
)

// SubscriptionService ties the tokenizer, recurrence math and
// reconciler to storage. One instance serves all users.
type SubscriptionService struct {
	subs     SubscriptionStore
	payments PaymentStore
	settings SettingsStore
	pending  PendingStore
	events   PaymentPublisher // optional
	logger   *slog.Logger
	today    func() core.Date
}

func NewSubscriptionService(
	subs SubscriptionStore,
	payments PaymentStore,
	settings SettingsStore,
	pending PendingStore,
	events PaymentPublisher,
	logger *slog.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionService{
		subs:     subs,
		payments: payments,
		settings: settings,
		pending:  pending,
		events:   events,
		logger:   logger,
		today:    core.Today,
	}
}

// QuickAddResult is one of three shapes: Subscription set (the record
// that was inserted or updated), Duplicate+PendingKey set (name
// collision parked for a decision), or the error path.
type QuickAddResult struct {
	Subscription *core.Subscription
	Duplicate    *core.Subscription
	PendingKey   string
}

// QuickAdd parses a one-line entry and either creates the subscription
// or, when the name matches an existing one for this user, parks the
// candidate and returns the collision for the caller to resolve via
// Decide.
func (s *SubscriptionService) QuickAdd(ctx context.Context, userID int64, text string) (QuickAddResult, error) {
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return QuickAddResult{}, fmt.Errorf("load settings: %w", err)
	}

	cand, ok := TokenizeQuickAdd(text, settings.DefaultCurrency)
	if !ok {
		return QuickAddResult{}, core.ErrMalformedInput
	}

	existing, err := s.subs.FindByName(ctx, userID, cand.Name)
	switch {
	case err == nil:
		key := s.pending.Put(userID, cand)
		s.logger.Info("quick add parked on duplicate",
			"user_id", userID, "name", cand.Name, "existing_id", existing.ID)
		return QuickAddResult{Duplicate: &existing, PendingKey: key}, nil
	case errors.Is(err, ErrNotFound):
		// No collision, create it.
	default:
		return QuickAddResult{}, fmt.Errorf("find by name: %w", err)
	}

	sub, err := s.create(ctx, userID, cand)
	if err != nil {
		return QuickAddResult{}, err
	}
	return QuickAddResult{Subscription: sub}, nil
}

func (s *SubscriptionService) create(ctx context.Context, userID int64, cand core.QuickAddCandidate) (*core.Subscription, error) {
	count, err := s.subs.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	if count >= core.MaxSubscriptionsPerUser {
		return nil, ErrSubscriptionLimit
	}

	today := s.today()
	next, err := NextFromLast(cand.ChargeDate, core.DefaultPeriod, today)
	if err != nil {
		return nil, err
	}
	sub := core.Subscription{
		UserID:     userID,
		Name:       cand.Name,
		Price:      cand.Price,
		NextDate:   next,
		Period:     core.DefaultPeriod,
		LastCharge: cand.ChargeDate,
		Category:   cand.Category,
	}
	id, err := s.subs.Insert(ctx, &sub)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	sub.ID = id

	if _, err := s.payments.Append(ctx, PaymentAppend{
		UserID:         userID,
		SubscriptionID: id,
		Amount:         cand.Price,
		PaidOn:         cand.ChargeDate,
	}); err != nil {
		return nil, fmt.Errorf("append payment: %w", err)
	}
	s.publishPayment(ctx, PaymentEvent{
		UserID:         userID,
		SubscriptionID: id,
		Name:           sub.Name,
		Amount:         cand.Price,
		PaidOn:         cand.ChargeDate,
	})

	s.logger.Info("subscription created",
		"user_id", userID, "id", id, "name", sub.Name, "next_date", sub.NextDate.ISO())
	return &sub, nil
}

// Decide resolves a parked duplicate. The pending entry is consumed on
// success; an expired or foreign key yields ErrPendingExpired.
func (s *SubscriptionService) Decide(ctx context.Context, userID int64, key string, decision Decision) (QuickAddResult, error) {
	if err := decision.Validate(); err != nil {
		return QuickAddResult{}, err
	}
	cand, ok := s.pending.Get(userID, key)
	if !ok {
		return QuickAddResult{}, ErrPendingExpired
	}

	if decision == DecisionCancel {
		s.pending.Delete(key)
		return QuickAddResult{}, nil
	}

	existing, err := s.subs.FindByName(ctx, userID, cand.Name)
	if errors.Is(err, ErrNotFound) {
		// The original disappeared while the user was deciding; any
		// remaining decision degrades to a plain create.
		sub, err := s.create(ctx, userID, cand)
		if err != nil {
			return QuickAddResult{}, err
		}
		s.pending.Delete(key)
		return QuickAddResult{Subscription: sub}, nil
	}
	if err != nil {
		return QuickAddResult{}, fmt.Errorf("find by name: %w", err)
	}

	plan, err := Reconcile(existing, cand, decision, s.today())
	if err != nil {
		return QuickAddResult{}, err
	}
	res, err := s.apply(ctx, existing, cand, plan)
	if err != nil {
		return QuickAddResult{}, err
	}
	s.pending.Delete(key)
	return res, nil
}

func (s *SubscriptionService) apply(ctx context.Context, existing core.Subscription, cand core.QuickAddCandidate, plan MutationPlan) (QuickAddResult, error) {
	if plan.Insert != nil {
		id, err := s.subs.Insert(ctx, plan.Insert)
		if err != nil {
			return QuickAddResult{}, fmt.Errorf("insert subscription: %w", err)
		}
		plan.Insert.ID = id
		if plan.Payment != nil {
			plan.Payment.SubscriptionID = id
		}
	}
	if plan.Update != nil {
		if err := s.subs.Update(ctx, *plan.Update); err != nil {
			return QuickAddResult{}, fmt.Errorf("update subscription: %w", err)
		}
	}
	if plan.Payment != nil {
		if _, err := s.payments.Append(ctx, *plan.Payment); err != nil {
			return QuickAddResult{}, fmt.Errorf("append payment: %w", err)
		}
		s.publishPayment(ctx, PaymentEvent{
			UserID:         plan.Payment.UserID,
			SubscriptionID: plan.Payment.SubscriptionID,
			Name:           cand.Name,
			Amount:         plan.Payment.Amount,
			PaidOn:         plan.Payment.PaidOn,
		})
	}

	if plan.Insert != nil {
		return QuickAddResult{Subscription: plan.Insert}, nil
	}
	updated := existing
	if plan.Update != nil {
		updated.Price = plan.Update.Price
		updated.LastCharge = plan.Update.LastCharge
		updated.NextDate = plan.Update.NextDate
	}
	return QuickAddResult{Subscription: &updated}, nil
}

// MarkPaid records today's charge for a subscription and rolls its next
// date forward.
func (s *SubscriptionService) MarkPaid(ctx context.Context, userID, subID int64) (core.Subscription, error) {
	sub, err := s.subs.Get(ctx, userID, subID)
	if err != nil {
		return core.Subscription{}, err
	}
	today := s.today()
	next, err := NextFromLast(today, sub.Period, today)
	if err != nil {
		return core.Subscription{}, err
	}
	upd := SubscriptionUpdate{
		ID:         sub.ID,
		Price:      sub.Price,
		LastCharge: today,
		NextDate:   next,
	}
	if err := s.subs.Update(ctx, upd); err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	if _, err := s.payments.Append(ctx, PaymentAppend{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Amount:         sub.Price,
		PaidOn:         today,
	}); err != nil {
		return core.Subscription{}, fmt.Errorf("append payment: %w", err)
	}
	s.publishPayment(ctx, PaymentEvent{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Name:           sub.Name,
		Amount:         sub.Price,
		PaidOn:         today,
	})

	sub.LastCharge = today
	sub.NextDate = next
	return sub, nil
}

func (s *SubscriptionService) List(ctx context.Context, userID int64) ([]core.Subscription, error) {
	return s.subs.ListByUser(ctx, userID)
}

func (s *SubscriptionService) SetPaused(ctx context.Context, userID, subID int64, paused bool) error {
	return s.subs.SetPaused(ctx, userID, subID, paused)
}

// SubscriptionEdit names the fields a user may change; nil keeps the
// stored value.
type SubscriptionEdit struct {
	Name     *string
	Price    *core.Money
	NextDate *core.Date
	Period   *core.Period
	Category *string
}

// Edit applies a partial update to a subscription. Changing the period
// without an explicit next date recomputes it from the last charge, so
// a monthly plan switched to yearly schedules a year out, not a month.
func (s *SubscriptionService) Edit(ctx context.Context, userID, subID int64, edit SubscriptionEdit) (core.Subscription, error) {
	sub, err := s.subs.Get(ctx, userID, subID)
	if err != nil {
		return core.Subscription{}, err
	}
	if edit.Name != nil {
		sub.Name = strings.TrimSpace(*edit.Name)
	}
	if edit.Price != nil {
		sub.Price = *edit.Price
	}
	if edit.Category != nil {
		sub.Category = strings.TrimSpace(*edit.Category)
	}
	if edit.Period != nil {
		sub.Period = *edit.Period
	}
	switch {
	case edit.NextDate != nil:
		sub.NextDate = *edit.NextDate
	case edit.Period != nil:
		seed := sub.LastCharge
		if seed.IsZero() {
			seed = s.today()
		}
		next, err := NextFromLast(seed, sub.Period, s.today())
		if err != nil {
			return core.Subscription{}, err
		}
		sub.NextDate = next
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}
	if err := s.subs.Replace(ctx, sub); err != nil {
		return core.Subscription{}, fmt.Errorf("replace subscription: %w", err)
	}
	s.logger.Info("subscription edited",
		"user_id", userID, "id", subID, "period", string(sub.Period), "next_date", sub.NextDate.ISO())
	return sub, nil
}

// Delete removes a subscription. Payment history stays; it is a
// ledger, not a cascade target.
func (s *SubscriptionService) Delete(ctx context.Context, userID, subID int64) error {
	if err := s.subs.Delete(ctx, userID, subID); err != nil {
		return err
	}
	s.logger.Info("subscription deleted", "user_id", userID, "id", subID)
	return nil
}

// UpcomingItem pairs a subscription with how many days remain until its
// next charge.
type UpcomingItem struct {
	Subscription core.Subscription
	DaysLeft     int
}

const upcomingWindowDays = 30

// Upcoming lists active subscriptions charging within the next 30
// days, soonest first.
func (s *SubscriptionService) Upcoming(ctx context.Context, userID int64) ([]UpcomingItem, error) {
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.today()
	var out []UpcomingItem
	for _, sub := range subs {
		if sub.Paused {
			continue
		}
		days := today.DaysUntil(sub.NextDate)
		if days < 0 || days > upcomingWindowDays {
			continue
		}
		out = append(out, UpcomingItem{Subscription: sub, DaysLeft: days})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DaysLeft != out[j].DaysLeft {
			return out[i].DaysLeft < out[j].DaysLeft
		}
		return out[i].Subscription.Name < out[j].Subscription.Name
	})
	return out, nil
}

// CurrencyTotal aggregates a year's payments in one currency: the
// grand total plus a per-month breakdown (index 0 is January).
type CurrencyTotal struct {
	Currency core.Currency
	Total    core.Money
	ByMonth  [12]int64
}

// YearlyStats groups a user's payment history for a year by currency.
// Currencies are never merged; the caller gets one row per currency,
// sorted by code.
func (s *SubscriptionService) YearlyStats(ctx context.Context, userID int64, year int) ([]CurrencyTotal, error) {
	payments, err := s.payments.ListForYear(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	byCur := make(map[core.Currency]*CurrencyTotal)
	for _, p := range payments {
		ct, ok := byCur[p.Amount.Currency]
		if !ok {
			ct = &CurrencyTotal{Currency: p.Amount.Currency, Total: core.Money{Currency: p.Amount.Currency}}
			byCur[p.Amount.Currency] = ct
		}
		ct.Total.Cents += p.Amount.Cents
		ct.ByMonth[int(p.PaidOn.Month())-1] += p.Amount.Cents
	}
	out := make([]CurrencyTotal, 0, len(byCur))
	for _, ct := range byCur {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (s *SubscriptionService) Settings(ctx context.Context, userID int64) (core.Settings, error) {
	return s.settings.Get(ctx, userID)
}

func (s *SubscriptionService) UpdateSettings(ctx context.Context, userID int64, settings core.Settings) error {
	if !settings.DefaultCurrency.Valid() {
		return core.ErrUnknownCurrency
	}
	if settings.ReminderHour < 0 || settings.ReminderHour > 23 {
		return fmt.Errorf("reminder hour %d: %w", settings.ReminderHour, core.ErrOutOfRange)
	}
	for _, d := range settings.ReminderDays {
		if d < 0 || d > maxReminderDays {
			return fmt.Errorf("reminder day %d: %w", d, core.ErrOutOfRange)
		}
	}
	return s.settings.Put(ctx, userID, settings)
}

// Event publishing is best effort: a broker outage must not fail the
// write that already happened.
func (s *SubscriptionService) publishPayment(ctx context.Context, ev PaymentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishPaymentRecorded(ctx, ev); err != nil {
		s.logger.Warn("publish payment event failed",
			"user_id", ev.UserID, "subscription_id", ev.SubscriptionID, "error", err)
	}
}
