package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

var (
	dayMonthYear = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{2}|\d{4})$`)
	amountUnit   = regexp.MustCompile(`(?i)^([0-9.]+)(crores?|cr|lakhs?|lacs?)?$`)

	// Serials up to 59 count from 1900-01-01; Excel then counts a 29 Feb 1900
	// that never existed.
	excelEpoch = calendar.Date(1899, time.December, 31)

	months = map[string]time.Month{
		"jan": time.January, "feb": time.February, "mar": time.March,
		"apr": time.April, "may": time.May, "jun": time.June,
		"jul": time.July, "aug": time.August, "sep": time.September,
		"oct": time.October, "nov": time.November, "dec": time.December,
	}

	lakh  = decimal.NewFromInt(100_000)
	crore = decimal.NewFromInt(10_000_000)
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// NormalizeDate reads the date forms found in exported spreadsheets: ISO
// dates, Excel serial numbers, DD-MMM-YY and DD/MM/YYYY.
func NormalizeDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil && len(value) <= 10 {
		days := int(serial)
		if days <= 0 || days >= 100_000 {
			return time.Time{}, fmt.Errorf("invalid date serial %q", raw)
		}
		if days > 59 {
			days--
		}
		return calendar.AddDays(excelEpoch, days), nil
	}

	if m := dayMonthYear.FindStringSubmatch(value); m != nil {
		month, ok := months[strings.ToLower(m[2])]
		if !ok {
			return time.Time{}, fmt.Errorf("invalid month in date %q", raw)
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if day < 1 || day > calendar.AddDays(calendar.Date(year, month+1, 1), -1).Day() {
			return time.Time{}, fmt.Errorf("invalid day in date %q", raw)
		}
		return calendar.Date(year, month, day), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return calendar.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseAmount reads a money value, dropping currency symbols and grouping
// separators and expanding lakh and crore suffixes.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.NewReplacer("₹", "", "$", "", ",", "", " ", "", "Rs.", "", "Rs", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, fmt.Errorf("amount is empty")
	}

	m := amountUnit.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	value, err := decimal.NewFromString(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	switch unit := strings.ToLower(m[2]); {
	case strings.HasPrefix(unit, "cr"):
		value = value.Mul(crore)
	case strings.HasPrefix(unit, "la"):
		value = value.Mul(lakh)
	}
	return value.InexactFloat64(), nil
}

func parseCount(raw string) (int, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return int(f), nil
}
