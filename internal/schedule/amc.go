package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

type AMCInput struct {
	Start       time.Time
	TotalAmount decimal.Decimal
	// Rates holds one fraction per contract year, e.g. 0.225 for 22.5%.
	Rates   []float64
	GSTRate float64
}

func (in AMCInput) validate() error {
	if in.Start.IsZero() {
		return ErrInvalidStartDate
	}
	if !in.TotalAmount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if len(in.Rates) == 0 {
		return ErrEmptyRates
	}
	if !validGST(in.GSTRate) {
		return ErrInvalidGSTRate
	}
	return nil
}

// AMC builds the quarter schedule of a maintenance contract. Contract year k
// bills TotalAmount*Rates[k]/4 per quarter, prorated by day overlap.
func (a *Assembler) AMC(in AMCInput) (*Schedule, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	years := calendar.ContractYears(in.Start, len(in.Rates))
	result := &Schedule{}

	var contributions []Contribution
	for k, rate := range in.Rates {
		if !validRate(rate) {
			w := Warning{
				ContractYear: k + 1,
				Rate:         rate,
				Message:      fmt.Sprintf("contract year %d skipped: invalid rate %v", k+1, rate),
			}
			result.Warnings = append(result.Warnings, w)
			a.log.Warn().Int("contract_year", k+1).Float64("rate", rate).Msg("skipping invalid rate")
			continue
		}

		full := FullQuarterAmount(in.TotalAmount, rate)
		for _, occ := range OverlappingQuarters(years[k]) {
			contributions = append(contributions, Contribution{
				ContractYear:      k,
				Rate:              rate,
				FullQuarterAmount: full,
				Prorated:          Prorate(full, occ.OverlapDays, occ.TotalDays),
				Occurrence:        occ,
			})
		}
	}

	result.Entries = aggregate(Reconcile(contributions), in.GSTRate)
	return result, nil
}
