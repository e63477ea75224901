package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar year-month.
type Period struct {
	Year  int
	Month int // 1-12
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// NewPeriod validates year and month.
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// ParsePeriod parses the canonical "YYYY-MM" key.
func ParsePeriod(s string) (Period, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || len(y) != 4 || len(m) != 2 {
		return Period{}, fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidPeriod, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return NewPeriod(year, month)
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidPeriod, p.Month)
	}
	if p.Year < 1900 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidPeriod, p.Year)
	}
	return nil
}

// String returns the "YYYY-MM" key.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Start is the first day of the month.
func (p Period) Start() Date {
	return NewDate(p.Year, p.Month, 1)
}

// End is the last day of the month, computed as day 0 of the next month.
func (p Period) End() Date {
	return NewDate(p.Year, p.Month+1, 0)
}

// AddMonths shifts the period by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, time.Month(p.Month)+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return PeriodOf(t)
}

// Previous is the immediately preceding calendar month.
func (p Period) Previous() Period {
	return p.AddMonths(-1)
}

// Contains reports whether d falls inside the month.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && int(d.Month()) == p.Month
}

// DateRange is an inclusive calendar-day interval; zero bounds are open.
type DateRange struct {
	From Date
	To   Date
}

// Range converts the period to its inclusive day interval.
func (p Period) Range() DateRange {
	return DateRange{From: p.Start(), To: p.End()}
}

// Contains reports whether d lies inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.From.IsZero() && d.Before(r.From.Time) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To.Time) {
		return false
	}
	return true
}
