// Package storage persists subscriptions, payment history and user
// settings in SQLite. Prices are stored packed ("129.00 NOK") and
// dates as ISO strings, so rows stay readable with any sqlite client.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/services"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(dbPath string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const subscriptionColumns = "id, user_id, name, price, next_date, period, last_charge_date, category, is_paused, created_at"

func (r *SQLiteRepository) Insert(ctx context.Context, sub *core.Subscription) (int64, error) {
	createdAt := sub.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var lastCharge any
	if !sub.LastCharge.IsZero() {
		lastCharge = sub.LastCharge.ISO()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, name, price, next_date, period, last_charge_date, category, is_paused, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.UserID, sub.Name, core.PackPrice(sub.Price), sub.NextDate.ISO(), string(sub.Period),
		lastCharge, sub.Category, boolToInt(sub.Paused), createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert subscription: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = createdAt
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, upd services.SubscriptionUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET price = ?, last_charge_date = ?, next_date = ?
		WHERE id = ?`,
		core.PackPrice(upd.Price), upd.LastCharge.ISO(), upd.NextDate.ISO(), upd.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, sub core.Subscription) error {
	var lastCharge any
	if !sub.LastCharge.IsZero() {
		lastCharge = sub.LastCharge.ISO()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET name = ?, price = ?, next_date = ?, period = ?, last_charge_date = ?, category = ?
		WHERE id = ? AND user_id = ?`,
		sub.Name, core.PackPrice(sub.Price), sub.NextDate.ISO(), string(sub.Period),
		lastCharge, sub.Category, sub.ID, sub.UserID,
	)
	if err != nil {
		return fmt.Errorf("replace subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.ErrNotFound
	}
	return nil
}

// Delete removes the subscription row only; payment_history rows stay.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID, id int64) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ? AND user_id = ?", id, userID)
	return r.scanSubscription(row)
}

func (r *SQLiteRepository) FindByName(ctx context.Context, userID int64, name string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? AND name = ? COLLATE NOCASE ORDER BY id LIMIT 1",
		userID, name)
	return r.scanSubscription(row)
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID int64) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE user_id = ? ORDER BY next_date, id", userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()
	return r.collectSubscriptions(rows)
}

func (r *SQLiteRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions WHERE user_id = ?", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) SetPaused(ctx context.Context, userID, id int64, paused bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE subscriptions SET is_paused = ? WHERE id = ? AND user_id = ?",
		boolToInt(paused), id, userID)
	if err != nil {
		return fmt.Errorf("set paused: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListActiveDueBetween(ctx context.Context, from, to core.Date) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+subscriptionColumns+" FROM subscriptions WHERE is_paused = 0 AND next_date >= ? AND next_date <= ? ORDER BY next_date, id",
		from.ISO(), to.ISO())
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()
	return r.collectSubscriptions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		sub        core.Subscription
		price      string
		nextDate   string
		period     string
		lastCharge sql.NullString
		paused     int
		createdAt  string
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.Name, &price, &nextDate, &period,
		&lastCharge, &sub.Category, &paused, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, services.ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}

	sub.Price, err = core.UnpackPrice(price)
	if err != nil {
		// A corrupt price must not hide the row; surface it as a zero
		// amount in the default currency and log loudly.
		r.logger.Warn("corrupt price in subscription row", "id", sub.ID, "raw", price)
		sub.Price = core.Money{Currency: core.DefaultCurrency}
	}
	sub.NextDate, err = core.ParseISO(nextDate)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("parse next_date %q: %w", nextDate, err)
	}
	sub.Period = core.Period(period)
	if lastCharge.Valid {
		sub.LastCharge, err = core.ParseISO(lastCharge.String)
		if err != nil {
			return core.Subscription{}, fmt.Errorf("parse last_charge_date %q: %w", lastCharge.String, err)
		}
	}
	sub.Paused = paused != 0
	sub.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return sub, nil
}

func (r *SQLiteRepository) collectSubscriptions(rows *sql.Rows) ([]core.Subscription, error) {
	var out []core.Subscription
	for rows.Next() {
		sub, err := r.scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Append(ctx context.Context, p services.PaymentAppend) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_history (user_id, subscription_id, amount, paid_at)
		VALUES (?, ?, ?, ?)`,
		p.UserID, p.SubscriptionID, core.PackPrice(p.Amount), p.PaidOn.ISO(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListForYear(ctx context.Context, userID int64, year int) ([]core.Payment, error) {
	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, subscription_id, amount, paid_at
		FROM payment_history
		WHERE user_id = ? AND paid_at >= ? AND paid_at <= ?
		ORDER BY paid_at, id`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p      core.Payment
			amount string
			paidAt string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &amount, &paidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Amount, err = core.UnpackPrice(amount)
		if err != nil {
			r.logger.Warn("corrupt amount in payment row", "id", p.ID, "raw", amount)
			p.Amount = core.Money{Currency: core.DefaultCurrency}
		}
		p.PaidOn, err = core.ParseISO(paidAt)
		if err != nil {
			return nil, fmt.Errorf("parse paid_at %q: %w", paidAt, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// settingsView exposes the settings table under the names the service
// layer expects, keeping them apart from the subscription Get. The
// fallback currency, usually from DEFAULT_CURRENCY, fills in for users
// without a stored row.
type settingsView struct {
	r        *SQLiteRepository
	fallback core.Currency
}

func (r *SQLiteRepository) Settings(fallback core.Currency) services.SettingsStore {
	if !fallback.Valid() {
		fallback = core.DefaultCurrency
	}
	return settingsView{r: r, fallback: fallback}
}

func (v settingsView) Get(ctx context.Context, userID int64) (core.Settings, error) {
	var (
		s        core.Settings
		currency string
		enabled  int
		days     string
	)
	err := v.r.db.QueryRowContext(ctx, `
		SELECT default_currency, reminder_enabled, reminder_days, reminder_hour
		FROM user_settings WHERE user_id = ?`, userID).
		Scan(&currency, &enabled, &days, &s.ReminderHour)
	if errors.Is(err, sql.ErrNoRows) {
		s = core.DefaultSettings()
		s.DefaultCurrency = v.fallback
		return s, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	s.DefaultCurrency = core.Currency(currency)
	if !s.DefaultCurrency.Valid() {
		s.DefaultCurrency = v.fallback
	}
	s.ReminderEnabled = enabled != 0
	s.ReminderDays = parseDayList(days)
	return s, nil
}

func (v settingsView) Put(ctx context.Context, userID int64, s core.Settings) error {
	_, err := v.r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, default_currency, reminder_enabled, reminder_days, reminder_hour)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			default_currency = excluded.default_currency,
			reminder_enabled = excluded.reminder_enabled,
			reminder_days = excluded.reminder_days,
			reminder_hour = excluded.reminder_hour`,
		userID, string(s.DefaultCurrency), boolToInt(s.ReminderEnabled), formatDayList(s.ReminderDays), s.ReminderHour,
	)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

func parseDayList(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func formatDayList(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
