package schedule

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

type Classification string

const (
	FirstOccurrence Classification = "first-occurrence"
	Residual        Classification = "residual"
	Unsplit         Classification = "none"
)

// Contribution is the part of one quarter occurrence billed to one contract year.
type Contribution struct {
	ContractYear      int
	Rate              float64
	FullQuarterAmount decimal.Decimal
	Prorated          decimal.Decimal
	Amount            decimal.Decimal
	Classification    Classification
	Occurrence        Occurrence
}

type labelKey struct {
	contractYear int
	quarter      calendar.Quarter
}

// Reconcile assigns the billed amount of every contribution. A contract year
// whose window does not start on a quarter boundary touches the same quarter
// label twice, once at each end. The earlier touch keeps its prorated amount
// and the later one is billed only what is left of the full quarter amount,
// so each contract year bills exactly four full quarters.
//
// The input is not modified. The result keeps the input order.
func Reconcile(contributions []Contribution) []Contribution {
	out := make([]Contribution, len(contributions))
	copy(out, contributions)

	groups := make(map[labelKey][]int)
	for i, c := range out {
		k := labelKey{contractYear: c.ContractYear, quarter: c.Occurrence.Key.Quarter}
		groups[k] = append(groups[k], i)
	}

	for _, idx := range groups {
		if len(idx) == 1 {
			c := &out[idx[0]]
			c.Classification = Unsplit
			c.Amount = c.Prorated
			continue
		}

		sort.SliceStable(idx, func(a, b int) bool {
			return out[idx[a]].Occurrence.Key.Year < out[idx[b]].Occurrence.Key.Year
		})

		first := &out[idx[0]]
		first.Classification = FirstOccurrence
		first.Amount = first.Prorated

		for _, i := range idx[1:] {
			c := &out[i]
			c.Classification = Residual
			c.Amount = decimal.Max(decimal.Zero, c.FullQuarterAmount.Sub(first.Prorated))
		}
	}
	return out
}
