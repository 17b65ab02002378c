package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

// Occurrence is one calendar quarter touched by a billing window.
type Occurrence struct {
	Key         calendar.Key
	Quarter     calendar.Period
	Overlap     calendar.Period
	OverlapDays int
	TotalDays   int
}

func (o Occurrence) Full() bool {
	return o.OverlapDays == o.TotalDays
}

// OverlappingQuarters lists every quarter occurrence sharing at least one day
// with window, ordered by display year then quarter. The scan starts one year
// early because the previous year's OND quarter runs into January.
func OverlappingQuarters(window calendar.Period) []Occurrence {
	window = calendar.NewPeriod(window.Start, window.End)
	if window.Start.After(window.End) {
		return nil
	}

	var out []Occurrence
	for year := window.Start.Year() - 1; year <= window.End.Year(); year++ {
		for _, q := range calendar.All {
			quarter := calendar.Range(q, year)
			overlap, ok := window.Overlap(quarter)
			if !ok {
				continue
			}
			out = append(out, Occurrence{
				Key:         calendar.Key{Quarter: q, Year: year},
				Quarter:     quarter,
				Overlap:     overlap,
				OverlapDays: overlap.Days(),
				TotalDays:   quarter.Days(),
			})
		}
	}
	return out
}

// Prorate scales a full quarter amount by the share of days covered.
func Prorate(full decimal.Decimal, overlapDays, totalDays int) decimal.Decimal {
	if totalDays <= 0 {
		return decimal.Zero
	}
	if overlapDays == totalDays {
		return full
	}
	return full.Mul(decimal.NewFromInt(int64(overlapDays))).Div(decimal.NewFromInt(int64(totalDays)))
}
