// Package dates provides the UTC calendar arithmetic shared by the payment
// ledger and the revenue reports. All helpers operate in UTC; a tenant-level
// timezone, if introduced later, changes where "today" is evaluated but never
// the truncation rule itself.
package dates

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMonth indicates a month string that is not "YYYY-MM".
var ErrInvalidMonth = errors.New("dates: month must be formatted as YYYY-MM")

// TruncateToDay returns 00:00:00 UTC on the calendar day of t.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseMonth parses "YYYY-MM" into the first instant of that month in UTC.
func ParseMonth(month string) (time.Time, error) {
	if len(month) != 7 || month[4] != '-' {
		return time.Time{}, ErrInvalidMonth
	}
	t, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

// FormatMonth renders a time as "YYYY-MM" using its UTC calendar month.
func FormatMonth(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month()))
}

// MonthRange returns the half-open interval [start, end) covering the month
// that contains t. December rolls into January of the following year.
func MonthRange(t time.Time) (start, end time.Time) {
	u := t.UTC()
	start = time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// DaysInMonth returns the number of calendar days in the month containing t,
// accounting for leap years.
func DaysInMonth(t time.Time) int {
	start, end := MonthRange(t)
	return int(end.Sub(start).Hours() / 24)
}

// WeekStart returns 00:00:00 UTC on the most recent Monday at or before t.
// Sunday maps to the Monday six days earlier.
func WeekStart(t time.Time) time.Time {
	day := TruncateToDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
