package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTruncateToDayStripsTimeOfDay(t *testing.T) {
	in := time.Date(2024, 1, 15, 17, 42, 9, 123456, time.UTC)
	got := TruncateToDay(in)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestTruncateToDayNormalisesZone(t *testing.T) {
	zone := time.FixedZone("UTC+7", 7*3600)
	// 02:30 on Jan 16 in UTC+7 is still Jan 15 in UTC.
	in := time.Date(2024, 1, 16, 2, 30, 0, 0, zone)
	got := TruncateToDay(in)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestParseMonth(t *testing.T) {
	got, err := ParseMonth("2026-12")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "2026", "2026-13", "2026-00", "26-12", "2026/12", "2026-1"} {
		_, err := ParseMonth(bad)
		require.ErrorIs(t, err, ErrInvalidMonth, "input %q", bad)
	}
}

func TestMonthRangeDecemberRollsOver(t *testing.T) {
	start, end := MonthRange(time.Date(2026, 12, 14, 10, 0, 0, 0, time.UTC))
	require.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		month string
		days  int
	}{
		{"2024-02", 29},
		{"2026-02", 28},
		{"2026-04", 30},
		{"2026-12", 31},
		{"2000-02", 29},
		{"1900-02", 28},
	}
	for _, tc := range cases {
		m, err := ParseMonth(tc.month)
		require.NoError(t, err)
		require.Equal(t, tc.days, DaysInMonth(m), "month %s", tc.month)
	}
}

func TestWeekStartMonday(t *testing.T) {
	monday := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	require.Equal(t, monday, WeekStart(monday))
	require.Equal(t, monday, WeekStart(monday.Add(23*time.Hour)))
	// Wednesday the 17th belongs to the same week.
	require.Equal(t, monday, WeekStart(time.Date(2024, 1, 17, 9, 0, 0, 0, time.UTC)))
	// Sunday the 21st maps back to Monday the 15th.
	require.Equal(t, monday, WeekStart(time.Date(2024, 1, 21, 23, 59, 0, 0, time.UTC)))
	// Monday the 22nd starts the next week.
	require.Equal(t, monday.AddDate(0, 0, 7), WeekStart(time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)))
}

func TestFormatMonth(t *testing.T) {
	require.Equal(t, "2024-02", FormatMonth(time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, "0999-01", FormatMonth(time.Date(999, 1, 1, 0, 0, 0, 0, time.UTC)))
}
