package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"subtrack/internal/core"
)

type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	subs     map[int64]core.Subscription
	payments []core.Payment
	settings map[int64]core.Settings
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subs:     make(map[int64]core.Subscription),
		settings: make(map[int64]core.Settings),
	}
}

func (f *fakeStore) Insert(_ context.Context, sub *core.Subscription) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub.ID = f.nextID
	f.subs[sub.ID] = *sub
	return sub.ID, nil
}

func (f *fakeStore) Update(_ context.Context, upd SubscriptionUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[upd.ID]
	if !ok {
		return ErrNotFound
	}
	sub.Price = upd.Price
	sub.LastCharge = upd.LastCharge
	sub.NextDate = upd.NextDate
	f.subs[upd.ID] = sub
	return nil
}

func (f *fakeStore) Replace(_ context.Context, sub core.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.subs[sub.ID]
	if !ok || old.UserID != sub.UserID {
		return ErrNotFound
	}
	f.subs[sub.ID] = sub
	return nil
}

func (f *fakeStore) Delete(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok || sub.UserID != userID {
		return ErrNotFound
	}
	delete(f.subs, id)
	return nil
}

func (f *fakeStore) Get(_ context.Context, userID, id int64) (core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok || sub.UserID != userID {
		return core.Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (f *fakeStore) FindByName(_ context.Context, userID int64, name string) (core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.UserID == userID && strings.EqualFold(sub.Name, name) {
			return sub, nil
		}
	}
	return core.Subscription{}, ErrNotFound
}

func (f *fakeStore) ListByUser(_ context.Context, userID int64) ([]core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Subscription
	for _, sub := range f.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeStore) CountByUser(ctx context.Context, userID int64) (int, error) {
	subs, _ := f.ListByUser(ctx, userID)
	return len(subs), nil
}

func (f *fakeStore) SetPaused(_ context.Context, userID, id int64, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok || sub.UserID != userID {
		return ErrNotFound
	}
	sub.Paused = paused
	f.subs[id] = sub
	return nil
}

func (f *fakeStore) ListActiveDueBetween(_ context.Context, from, to core.Date) ([]core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Subscription
	for _, sub := range f.subs {
		if sub.Paused {
			continue
		}
		if !sub.NextDate.Before(from) && !sub.NextDate.After(to) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeStore) Append(_ context.Context, p PaymentAppend) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.payments) + 1)
	f.payments = append(f.payments, core.Payment{
		ID:             id,
		UserID:         p.UserID,
		SubscriptionID: p.SubscriptionID,
		Amount:         p.Amount,
		PaidOn:         p.PaidOn,
	})
	return id, nil
}

func (f *fakeStore) ListForYear(_ context.Context, userID int64, year int) ([]core.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Payment
	for _, p := range f.payments {
		if p.UserID == userID && p.PaidOn.Year() == year {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetSettings(_ context.Context, userID int64) (core.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return core.DefaultSettings(), nil
}

func (f *fakeStore) PutSettings(_ context.Context, userID int64, s core.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[userID] = s
	return nil
}

// settingsAdapter exposes the fake's settings methods under the
// SettingsStore names.
type settingsAdapter struct{ f *fakeStore }

func (a settingsAdapter) Get(ctx context.Context, userID int64) (core.Settings, error) {
	return a.f.GetSettings(ctx, userID)
}
func (a settingsAdapter) Put(ctx context.Context, userID int64, s core.Settings) error {
	return a.f.PutSettings(ctx, userID, s)
}

type fakePending struct {
	mu      sync.Mutex
	nextKey int
	entries map[string]pendingEntry
}

type pendingEntry struct {
	userID int64
	cand   core.QuickAddCandidate
}

func newFakePending() *fakePending {
	return &fakePending{entries: make(map[string]pendingEntry)}
}

func (p *fakePending) Put(userID int64, cand core.QuickAddCandidate) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextKey++
	key := "k" + strconv.Itoa(p.nextKey)
	p.entries[key] = pendingEntry{userID: userID, cand: cand}
	return key
}

func (p *fakePending) Get(userID int64, key string) (core.QuickAddCandidate, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok || e.userID != userID {
		return core.QuickAddCandidate{}, false
	}
	return e.cand, true
}

func (p *fakePending) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
}

type capturingPublisher struct {
	mu        sync.Mutex
	payments  []PaymentEvent
	reminders []ReminderEvent
}

func (c *capturingPublisher) PublishPaymentRecorded(_ context.Context, ev PaymentEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payments = append(c.payments, ev)
	return nil
}

func (c *capturingPublisher) PublishReminder(_ context.Context, ev ReminderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reminders = append(c.reminders, ev)
	return nil
}

func newTestService(store *fakeStore, pending *fakePending, pub *capturingPublisher, today core.Date) *SubscriptionService {
	svc := NewSubscriptionService(store, store, settingsAdapter{store}, pending, pub, nil)
	svc.today = func() core.Date { return today }
	return svc
}

func TestQuickAddCreates(t *testing.T) {
	store := newFakeStore()
	pending := newFakePending()
	pub := &capturingPublisher{}
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, pending, pub, today)

	res, err := svc.QuickAdd(context.Background(), 42, "Netflix 129 kr 15.03.26")
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	if res.Subscription == nil || res.Duplicate != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Subscription.Name != "Netflix" || res.Subscription.Price.Cents != 12900 {
		t.Fatalf("created = %+v", res.Subscription)
	}
	want := core.NewDate(2026, time.April, 15)
	if !res.Subscription.NextDate.Equal(want) {
		t.Fatalf("next date = %s, want %s", res.Subscription.NextDate.ISO(), want.ISO())
	}
	if len(store.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(store.payments))
	}
	if len(pub.payments) != 1 || pub.payments[0].SubscriptionID != res.Subscription.ID {
		t.Fatalf("events = %+v", pub.payments)
	}
}

func TestQuickAddDuplicateFlow(t *testing.T) {
	store := newFakeStore()
	pending := newFakePending()
	pub := &capturingPublisher{}
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, pending, pub, today)
	ctx := context.Background()

	if _, err := svc.QuickAdd(ctx, 42, "Netflix 119 kr 15.02.26"); err != nil {
		t.Fatalf("first QuickAdd: %v", err)
	}

	res, err := svc.QuickAdd(ctx, 42, "netflix 129 kr 15.03.26")
	if err != nil {
		t.Fatalf("second QuickAdd: %v", err)
	}
	if res.Duplicate == nil || res.PendingKey == "" || res.Subscription != nil {
		t.Fatalf("expected duplicate result, got %+v", res)
	}

	decided, err := svc.Decide(ctx, 42, res.PendingKey, DecisionRecordPayment)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Subscription == nil {
		t.Fatalf("decide result = %+v", decided)
	}
	if decided.Subscription.Price.Cents != 12900 {
		t.Fatalf("price after record = %d, want 12900", decided.Subscription.Price.Cents)
	}
	if len(store.payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(store.payments))
	}
	// Key is consumed.
	if _, err := svc.Decide(ctx, 42, res.PendingKey, DecisionRecordPayment); !errors.Is(err, ErrPendingExpired) {
		t.Fatalf("reused key error = %v, want ErrPendingExpired", err)
	}
}

func TestDecideWrongOwner(t *testing.T) {
	store := newFakeStore()
	pending := newFakePending()
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, pending, &capturingPublisher{}, today)
	ctx := context.Background()

	if _, err := svc.QuickAdd(ctx, 42, "Netflix 119 kr 15.02.26"); err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	res, err := svc.QuickAdd(ctx, 42, "Netflix 129 kr 15.03.26")
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	if _, err := svc.Decide(ctx, 99, res.PendingKey, DecisionCancel); !errors.Is(err, ErrPendingExpired) {
		t.Fatalf("foreign key error = %v, want ErrPendingExpired", err)
	}
}

func TestQuickAddMalformed(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakePending(), &capturingPublisher{}, core.Today())
	if _, err := svc.QuickAdd(context.Background(), 42, "Netflix 129 kr"); !errors.Is(err, core.ErrMalformedInput) {
		t.Fatalf("error = %v, want ErrMalformedInput", err)
	}
}

func TestQuickAddLimit(t *testing.T) {
	store := newFakeStore()
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, newFakePending(), &capturingPublisher{}, today)
	ctx := context.Background()

	for i := 0; i < core.MaxSubscriptionsPerUser; i++ {
		text := "service" + strconv.Itoa(i) + " 10 kr 15.03.26"
		if _, err := svc.QuickAdd(ctx, 42, text); err != nil {
			t.Fatalf("QuickAdd %d: %v", i, err)
		}
	}
	if _, err := svc.QuickAdd(ctx, 42, "onemore 10 kr 15.03.26"); !errors.Is(err, ErrSubscriptionLimit) {
		t.Fatalf("error = %v, want ErrSubscriptionLimit", err)
	}
}

func TestMarkPaid(t *testing.T) {
	store := newFakeStore()
	pub := &capturingPublisher{}
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, newFakePending(), pub, today)
	ctx := context.Background()

	res, err := svc.QuickAdd(ctx, 42, "Spotify 109 kr 15.02.26")
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}

	sub, err := svc.MarkPaid(ctx, 42, res.Subscription.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if !sub.LastCharge.Equal(today) {
		t.Fatalf("last charge = %s, want %s", sub.LastCharge.ISO(), today.ISO())
	}
	want := core.NewDate(2026, time.April, 16)
	if !sub.NextDate.Equal(want) {
		t.Fatalf("next date = %s, want %s", sub.NextDate.ISO(), want.ISO())
	}
	if len(store.payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(store.payments))
	}
	if _, err := svc.MarkPaid(ctx, 99, res.Subscription.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign user error = %v, want ErrNotFound", err)
	}
}

func TestEditSubscription(t *testing.T) {
	store := newFakeStore()
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, newFakePending(), &capturingPublisher{}, today)
	ctx := context.Background()

	res, err := svc.QuickAdd(ctx, 42, "Spotify 109 kr 15.02.26")
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	id := res.Subscription.ID

	yearly := core.Year
	sub, err := svc.Edit(ctx, 42, id, SubscriptionEdit{Period: &yearly})
	if err != nil {
		t.Fatalf("Edit period: %v", err)
	}
	if sub.Period != core.Year {
		t.Fatalf("period = %s, want year", sub.Period)
	}
	want := core.NewDate(2027, time.February, 15)
	if !sub.NextDate.Equal(want) {
		t.Fatalf("next date = %s, want %s", sub.NextDate.ISO(), want.ISO())
	}

	weekly := core.Week
	sub, err = svc.Edit(ctx, 42, id, SubscriptionEdit{Period: &weekly})
	if err != nil {
		t.Fatalf("Edit period: %v", err)
	}
	want = core.NewDate(2026, time.March, 22)
	if !sub.NextDate.Equal(want) {
		t.Fatalf("weekly next date = %s, want %s", sub.NextDate.ISO(), want.ISO())
	}

	name := "  Spotify Family  "
	price := core.Money{Cents: 16900, Currency: core.NOK}
	next := core.NewDate(2026, time.May, 1)
	sub, err = svc.Edit(ctx, 42, id, SubscriptionEdit{Name: &name, Price: &price, NextDate: &next})
	if err != nil {
		t.Fatalf("Edit fields: %v", err)
	}
	if sub.Name != "Spotify Family" || sub.Price.Cents != 16900 || !sub.NextDate.Equal(next) {
		t.Fatalf("edited = %+v", sub)
	}
	stored, err := store.Get(ctx, 42, id)
	if err != nil || stored.Name != "Spotify Family" {
		t.Fatalf("stored = %+v, %v", stored, err)
	}

	bad := core.Period("daily")
	if _, err := svc.Edit(ctx, 42, id, SubscriptionEdit{Period: &bad}); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Fatalf("bad period error = %v, want ErrInvalidPeriod", err)
	}
	if _, err := svc.Edit(ctx, 99, id, SubscriptionEdit{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign user error = %v, want ErrNotFound", err)
	}
}

func TestDeleteSubscription(t *testing.T) {
	store := newFakeStore()
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, newFakePending(), &capturingPublisher{}, today)
	ctx := context.Background()

	res, err := svc.QuickAdd(ctx, 42, "Netflix 129 kr 15.03.26")
	if err != nil {
		t.Fatalf("QuickAdd: %v", err)
	}
	id := res.Subscription.ID

	if err := svc.Delete(ctx, 99, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign user error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, 42, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, 42, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted row error = %v, want ErrNotFound", err)
	}
	// Payment history is kept.
	if len(store.payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(store.payments))
	}
	// The name is free again.
	again, err := svc.QuickAdd(ctx, 42, "Netflix 129 kr 15.03.26")
	if err != nil || again.Subscription == nil {
		t.Fatalf("re-add after delete = %+v, %v", again, err)
	}
}

func TestUpcomingSortedAndFiltered(t *testing.T) {
	store := newFakeStore()
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, newFakePending(), &capturingPublisher{}, today)
	ctx := context.Background()

	add := func(name string, next core.Date, paused bool) {
		sub := core.Subscription{
			UserID:   42,
			Name:     name,
			Price:    core.Money{Cents: 1000, Currency: core.NOK},
			NextDate: next,
			Period:   core.Month,
			Paused:   paused,
		}
		if _, err := store.Insert(ctx, &sub); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	add("soon", today.AddDays(2), false)
	add("later", today.AddDays(10), false)
	add("paused", today.AddDays(1), true)
	add("far", today.AddDays(45), false)

	items, err := svc.Upcoming(ctx, 42)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Subscription.Name != "soon" || items[0].DaysLeft != 2 {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[1].Subscription.Name != "later" || items[1].DaysLeft != 10 {
		t.Fatalf("second item = %+v", items[1])
	}
}

func TestYearlyStats(t *testing.T) {
	store := newFakeStore()
	today := core.NewDate(2026, time.March, 16)
	svc := newTestService(store, newFakePending(), &capturingPublisher{}, today)
	ctx := context.Background()

	pay := func(cents int64, cur core.Currency, d core.Date) {
		if _, err := store.Append(ctx, PaymentAppend{
			UserID: 42, SubscriptionID: 1,
			Amount: core.Money{Cents: cents, Currency: cur},
			PaidOn: d,
		}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	pay(12900, core.NOK, core.NewDate(2026, time.January, 15))
	pay(12900, core.NOK, core.NewDate(2026, time.February, 15))
	pay(999, core.EUR, core.NewDate(2026, time.February, 1))
	pay(5000, core.NOK, core.NewDate(2025, time.December, 15)) // other year

	stats, err := svc.YearlyStats(ctx, 42, 2026)
	if err != nil {
		t.Fatalf("YearlyStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].Currency != core.EUR || stats[0].Total.Cents != 999 {
		t.Fatalf("eur row = %+v", stats[0])
	}
	if stats[1].Currency != core.NOK || stats[1].Total.Cents != 25800 {
		t.Fatalf("nok row = %+v", stats[1])
	}
	if stats[1].ByMonth[0] != 12900 || stats[1].ByMonth[1] != 12900 {
		t.Fatalf("nok by month = %v", stats[1].ByMonth)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakePending(), &capturingPublisher{}, core.Today())
	ctx := context.Background()

	good := core.Settings{DefaultCurrency: core.EUR, ReminderEnabled: true, ReminderDays: []int{1, 3}, ReminderHour: 9}
	if err := svc.UpdateSettings(ctx, 42, good); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	got, err := svc.Settings(ctx, 42)
	if err != nil || got.DefaultCurrency != core.EUR {
		t.Fatalf("Settings = %+v, %v", got, err)
	}

	bad := good
	bad.DefaultCurrency = "XXX"
	if err := svc.UpdateSettings(ctx, 42, bad); !errors.Is(err, core.ErrUnknownCurrency) {
		t.Fatalf("bad currency error = %v", err)
	}
	bad = good
	bad.ReminderHour = 25
	if err := svc.UpdateSettings(ctx, 42, bad); !errors.Is(err, core.ErrOutOfRange) {
		t.Fatalf("bad hour error = %v", err)
	}
	bad = good
	bad.ReminderDays = []int{12}
	if err := svc.UpdateSettings(ctx, 42, bad); !errors.Is(err, core.ErrOutOfRange) {
		t.Fatalf("bad day error = %v", err)
	}
}
