package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Date is a calendar date carried as YYYY-MM-DD in JSON. A value that is
// present but not a date decodes without error and keeps its raw text, so a
// single bad row does not reject the request it came in.
type Date struct {
	time.Time
	raw string
}

func NewDate(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{Time: calendar.DateOnly(t)}
}

func ParseDate(value string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", value)
}

// Invalid reports a value that was given but could not be parsed.
func (d Date) Invalid() bool {
	return d.raw != ""
}

// Raw is the unparsed input of an invalid date.
func (d Date) Raw() string {
	return d.raw
}

func (d Date) String() string {
	if d.Invalid() {
		return d.raw
	}
	return calendar.FormatISO(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Invalid() {
		return json.Marshal(d.raw)
	}
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*d = Date{raw: string(data)}
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		*d = Date{raw: raw}
		return nil
	}
	*d = parsed
	return nil
}
