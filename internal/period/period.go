// Package period implements budget-period arithmetic. A period is labelled by a
// calendar month ("2024-05") but its date range depends on the owner's
// configurable start day.
package period

import (
	"fmt"
	"time"
)

// Start day bounds accepted for an owner's period start day.
const (
	MinStartDay = 1
	MaxStartDay = 28
)

// Period is a year-month budget period label.
type Period struct {
	Year  int
	Month time.Month
}

// New returns the period labelled year-month.
func New(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// Parse parses a "YYYY-MM" label.
func Parse(label string) (Period, error) {
	t, err := time.Parse("2006-01", label)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: expected YYYY-MM", label)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// FromDate returns the calendar-month label of t, ignoring any start day.
func FromDate(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// String returns the "YYYY-MM" label.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// FirstDay returns the first calendar day of the labelled month in UTC. Budgets
// store their period this way.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether p is the zero Period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Prev returns the previous period, rolling January back to December of the
// previous year.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the following period.
func (p Period) Next() Period {
	if p.Month == time.December {
		return Period{Year: p.Year + 1, Month: time.January}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// ValidStartDay reports whether day can be used as a period start day.
func ValidStartDay(day int) bool {
	return day >= MinStartDay && day <= MaxStartDay
}

// Current returns the label of the period containing now. When the day of month
// is before startDay the period still belongs to the previous month.
func Current(now time.Time, startDay int) Period {
	p := FromDate(now)
	if now.Day() < startDay {
		return p.Prev()
	}
	return p
}

// Range returns the half-open date range [start, end) of p: start is day
// startDay+1 of the month before p, end is day startDay of p's month. Day
// overflow (startDay 28 in a 28-day February) normalises into the next month.
func Range(p Period, startDay int) (start, end time.Time) {
	prev := p.Prev()
	start = time.Date(prev.Year, prev.Month, startDay+1, 0, 0, 0, 0, time.UTC)
	end = time.Date(p.Year, p.Month, startDay, 0, 0, 0, 0, time.UTC)
	return start, end
}

// MarshalText implements encoding.TextMarshaler.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
