package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the wire format of calendar dates.
	DateLayout = "2006-01-02"
	// DisplayDateLayout is the format operators type into the search box.
	DisplayDateLayout = "02/01/2006"
	// PeriodLayout is the format of an invoice period tag.
	PeriodLayout = "2006-01"
)

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days of the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped advances t by the given number of calendar months.
// The day of month is clamped to the last valid day of the target month,
// so January 31 plus one month is February 28 (or 29), never March 2 or 3.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()

	total := int(m) - 1 + months
	year := y + total/12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	target := time.Month(month + 1)

	if last := DaysIn(year, target); d > last {
		d = last
	}

	hh, mm, ss := t.Clock()
	return time.Date(year, target, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// AddYearsClamped advances t by whole years, clamping February 29 to February 28
// in non-leap target years.
func AddYearsClamped(t time.Time, years int) time.Time {
	return AddMonthsClamped(t, years*12)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD, or the empty string for a zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// FormatDisplayDate renders t as DD/MM/YYYY, or the empty string for a zero time.
func FormatDisplayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayDateLayout)
}

// ApplyRate returns amount * (1 + rate) rounded to 2 decimal places.
func ApplyRate(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(rate)).Round(2)
}
