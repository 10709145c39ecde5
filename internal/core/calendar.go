package core

import (
	"time"
)

// Date is a civil date with no time-of-day and no timezone semantics.
// Internally it is a UTC midnight time.Time, so the zero value is the
// zero time and IsZero works as expected.
type Date struct {
	time.Time
}

// userDateLayouts are the formats accepted from user input, tried in
// order. Single-digit day and month are fine ("1.2.26").
var userDateLayouts = []string{
	"2.1.2006",
	"2.1.06",
	"2/1/2006",
	"2/1/06",
	"2006-01-02",
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current civil date in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// DateOf truncates a time.Time to its civil date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a user-supplied date: D.M.YYYY, D.M.YY, D/M/YYYY,
// D/M/YY or ISO YYYY-MM-DD. Two-digit years land in 2000..2068.
func ParseDate(s string) (Date, bool) {
	for _, layout := range userDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return Date{}, false
}

// ParseISO parses the storage form YYYY-MM-DD.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// ISO renders the storage form YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Display renders the user-facing form DD.MM.YYYY.
func (d Date) Display() string {
	return d.Format("02.01.2006")
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// DaysUntil returns the number of whole days from d to o. Negative when
// o is in the past relative to d.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time) / (24 * time.Hour))
}

// DaysInMonth returns the length of a month, leap-year aware.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay pins a day-of-month into the valid range for year/month.
func ClampDay(year int, month time.Month, day int) int {
	if day < 1 {
		return 1
	}
	if max := DaysInMonth(year, month); day > max {
		return max
	}
	return day
}

// AddMonths advances by n calendar months, clamping the day so the
// result stays inside the target month: Jan 31 + 1 month is Feb 28 (or
// 29 in a leap year), never Mar 2. There is no anchor-day memory; a
// clamped date steps forward from its clamped day.
func (d Date) AddMonths(n int) Date {
	total := d.Year()*12 + int(d.Month()) - 1 + n
	year := total / 12
	month := time.Month(total%12 + 1)
	return NewDate(year, month, ClampDay(year, month, d.Day()))
}

// AddYears advances by n years with the same clamping rule, so
// Feb 29 + 1 year is Feb 28.
func (d Date) AddYears(n int) Date {
	year := d.Year() + n
	return NewDate(year, d.Month(), ClampDay(year, d.Month(), d.Day()))
}

// AddDays advances by n days with plain calendar arithmetic.
func (d Date) AddDays(n int) Date {
	t := d.Time.AddDate(0, 0, n)
	return DateOf(t)
}

// MarshalJSON renders the ISO form; the zero date renders as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseISO(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
