package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

type WarrantyInput struct {
	Start       time.Time
	TotalAmount decimal.Decimal
	Years       int
	GSTRate     float64
}

func (in WarrantyInput) validate() error {
	if in.Start.IsZero() {
		return ErrInvalidStartDate
	}
	if !in.TotalAmount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if in.Years < 1 {
		return ErrInvalidDuration
	}
	if !validGST(in.GSTRate) {
		return ErrInvalidGSTRate
	}
	return nil
}

// Window returns the covered days: from start to the day before the
// anniversary Years later.
func (in WarrantyInput) Window() calendar.Period {
	start := calendar.DateOnly(in.Start)
	return calendar.Period{Start: start, End: calendar.AddDays(calendar.AddYears(start, in.Years), -1)}
}

// Warranty spreads TotalAmount flat over Years*4 quarters. When the start date
// falls inside a quarter, the first quarter is prorated and the last one
// carries the remainder of that quarter's amount.
func (a *Assembler) Warranty(in WarrantyInput) (*Schedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	quarterly := in.TotalAmount.Div(decimal.NewFromInt(int64(in.Years * 4)))
	window := in.Window()
	years := calendar.ContractYears(window.Start, in.Years)
	occurrences := OverlappingQuarters(window)

	first := occurrences[0]
	firstProrated := Prorate(quarterly, first.OverlapDays, first.TotalDays)
	firstPartial := !first.Full()
	lastIdx := len(occurrences) - 1

	contributions := make([]Contribution, 0, len(occurrences))
	for i, occ := range occurrences {
		c := Contribution{
			ContractYear:      yearIndex(years, occ.Overlap.Start),
			FullQuarterAmount: quarterly,
			Prorated:          Prorate(quarterly, occ.OverlapDays, occ.TotalDays),
			Classification:    Unsplit,
			Occurrence:        occ,
		}
		c.Amount = c.Prorated

		switch {
		case i == 0 && firstPartial:
			c.Classification = FirstOccurrence
		case i == lastIdx && firstPartial:
			c.Classification = Residual
			c.Amount = decimal.Max(decimal.Zero, quarterly.Sub(firstProrated))
		}
		contributions = append(contributions, c)
	}

	return &Schedule{Entries: aggregate(contributions, in.GSTRate)}, nil
}

func yearIndex(years []calendar.Period, day time.Time) int {
	for i, y := range years {
		if y.Contains(day) {
			return i
		}
	}
	return 0
}
