package calendar

import (
	"fmt"
	"time"
)

const isoLayout = "2006-01-02"

// Date builds a date-only value at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly drops the clock part of t, keeping its calendar date.
func DateOnly(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

func AddDays(t time.Time, n int) time.Time {
	return DateOnly(t).AddDate(0, 0, n)
}

// AddYears moves t by n calendar years. A day that does not exist in the
// target month (Feb 29 in a common year) is clamped to the month's last day.
func AddYears(t time.Time, n int) time.Time {
	year := t.Year() + n
	day := t.Day()
	if last := daysInMonth(year, t.Month()); day > last {
		day = last
	}
	return Date(year, t.Month(), day)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// DaysInclusive counts the days of [a, b], both ends included.
func DaysInclusive(a, b time.Time) int {
	return DaysBetween(a, b) + 1
}

func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(isoLayout)
}

func ParseISO(value string) (time.Time, error) {
	t, err := time.Parse(isoLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}
