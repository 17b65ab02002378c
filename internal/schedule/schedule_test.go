package schedule

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

var defaultRates = []float64{0.20, 0.225, 0.275, 0.30}

func newAssembler() *Assembler {
	return NewAssembler(zerolog.Nop())
}

func mustEntry(t *testing.T, s *Schedule, q calendar.Quarter, year int) Entry {
	t.Helper()
	e, ok := s.Find(calendar.Key{Quarter: q, Year: year})
	require.True(t, ok, "missing entry %s", calendar.Key{Quarter: q, Year: year})
	return e
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestAMC_FirstFullQuarter(t *testing.T) {
	// UAT 2020-01-01, AMC starts three years later.
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2023, 1, 1),
		TotalAmount: dec("40000"),
		Rates:       defaultRates,
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	jfm := mustEntry(t, s, calendar.Q1, 2023)
	assert.True(t, jfm.WithoutGST.Equal(dec("2000")), jfm.WithoutGST.String())
	assert.True(t, jfm.WithGST.Equal(dec("2360")), jfm.WithGST.String())
	require.Len(t, jfm.Contributions, 1)
	assert.Equal(t, Unsplit, jfm.Contributions[0].Classification)
	assert.Equal(t, 90, jfm.Contributions[0].Occurrence.OverlapDays)

	// Jan 1-4 of the first contract year fall into the previous OND quarter.
	tail := mustEntry(t, s, calendar.Q4, 2022)
	assert.True(t, tail.WithoutGST.Equal(dec("86.96")), tail.WithoutGST.String())
	assert.Equal(t, FirstOccurrence, tail.Contributions[0].Classification)
}

func TestAMC_BoundaryQuarterIsSplitNotDoubled(t *testing.T) {
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2023, 1, 1),
		TotalAmount: dec("40000"),
		Rates:       defaultRates,
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	// OND-2023 runs Oct 5 2023 - Jan 4 2024; the second contract year starts 2024-01-01.
	ond := mustEntry(t, s, calendar.Q4, 2023)
	require.Len(t, ond.Contributions, 2)

	earlier, later := ond.Contributions[0], ond.Contributions[1]
	assert.Equal(t, 0, earlier.ContractYear)
	assert.Equal(t, 1, later.ContractYear)
	assert.Equal(t, 88, earlier.Occurrence.OverlapDays)
	assert.Equal(t, 4, later.Occurrence.OverlapDays)

	assert.Equal(t, Residual, earlier.Classification)
	assert.True(t, earlier.Amount.Equal(dec("2000").Sub(dec("2000").Mul(dec("4")).Div(dec("92")))))
	assert.Equal(t, FirstOccurrence, later.Classification)
	assert.True(t, later.Amount.Equal(later.Prorated))

	assert.True(t, ond.WithoutGST.Equal(dec("2010.87")), ond.WithoutGST.String())
	assert.True(t, ond.WithoutGST.LessThan(dec("2000").Add(dec("2250"))))
}

func TestAMC_SumEqualsContractValue(t *testing.T) {
	starts := []time.Time{
		calendar.Date(2023, 1, 1),
		calendar.Date(2023, 1, 5),
		calendar.Date(2024, 2, 29),
		calendar.Date(2025, 8, 17),
		calendar.Date(2026, 10, 4),
	}
	total := dec("123456.78")

	for _, start := range starts {
		t.Run(calendar.FormatISO(start), func(t *testing.T) {
			s, err := newAssembler().AMC(AMCInput{Start: start, TotalAmount: total, Rates: defaultRates, GSTRate: 0.18})
			require.NoError(t, err)

			// The default rates add up to 100%.
			expected := total
			tolerance := dec("0.005").Mul(decimal.NewFromInt(int64(len(s.Entries))))
			diff := s.TotalWithoutGST().Sub(expected).Abs()
			assert.True(t, diff.LessThanOrEqual(tolerance), "diff %s", diff)

			for i := 1; i < len(s.Entries); i++ {
				assert.True(t, s.Entries[i-1].Key.Less(s.Entries[i].Key))
			}
		})
	}
}

func TestAMC_EachContractYearBillsFourQuarters(t *testing.T) {
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2024, 5, 20),
		TotalAmount: dec("50000"),
		Rates:       defaultRates,
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	perYear := map[int]decimal.Decimal{}
	for _, e := range s.Entries {
		for _, c := range e.Contributions {
			perYear[c.ContractYear] = perYear[c.ContractYear].Add(c.Amount)
		}
	}
	for k, rate := range defaultRates {
		want := FullQuarterAmount(dec("50000"), rate).Mul(decimal.NewFromInt(4))
		assert.True(t, perYear[k].Sub(want).Abs().LessThan(dec("0.0000001")), "year %d: %s vs %s", k, perYear[k], want)
	}
}

func TestAMC_GSTComputedFromRoundedBase(t *testing.T) {
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2023, 3, 17),
		TotalAmount: dec("98765.43"),
		Rates:       defaultRates,
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	for _, e := range s.Entries {
		assert.True(t, e.WithoutGST.Equal(e.Total.Round(2)))
		assert.True(t, e.WithGST.Equal(e.WithoutGST.Mul(dec("1.18")).Round(2)), e.Key.String())
	}
}

func TestAMC_OverlapDaysWithinQuarter(t *testing.T) {
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2027, 11, 30),
		TotalAmount: dec("10000"),
		Rates:       defaultRates,
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	for _, e := range s.Entries {
		for _, c := range e.Contributions {
			occ := c.Occurrence
			assert.Contains(t, []int{90, 91, 92}, occ.TotalDays)
			assert.GreaterOrEqual(t, occ.OverlapDays, 1)
			assert.LessOrEqual(t, occ.OverlapDays, occ.TotalDays)
			assert.False(t, c.Amount.IsNegative())
		}
	}
}

func TestAMC_ResidualNeverExceedsFullQuarter(t *testing.T) {
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2023, 2, 14),
		TotalAmount: dec("40000"),
		Rates:       []float64{0.5, 0.1, 0.4},
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	byYearLabel := map[labelKey]decimal.Decimal{}
	full := map[labelKey]decimal.Decimal{}
	for _, e := range s.Entries {
		for _, c := range e.Contributions {
			k := labelKey{contractYear: c.ContractYear, quarter: c.Occurrence.Key.Quarter}
			byYearLabel[k] = byYearLabel[k].Add(c.Amount)
			full[k] = c.FullQuarterAmount
		}
	}
	for k, sum := range byYearLabel {
		assert.True(t, sum.LessThanOrEqual(full[k].Add(dec("0.01"))), "%+v", k)
	}
}

func TestAMC_Idempotent(t *testing.T) {
	in := AMCInput{Start: calendar.Date(2025, 7, 9), TotalAmount: dec("77777.77"), Rates: defaultRates, GSTRate: 0.18}
	a := newAssembler()

	first, err := a.AMC(in)
	require.NoError(t, err)
	second, err := a.AMC(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAMC_Validation(t *testing.T) {
	valid := AMCInput{Start: calendar.Date(2023, 1, 1), TotalAmount: dec("1000"), Rates: defaultRates, GSTRate: 0.18}

	cases := map[string]struct {
		mutate func(*AMCInput)
		err    error
	}{
		"missing start": {func(in *AMCInput) { in.Start = time.Time{} }, ErrInvalidStartDate},
		"zero amount":   {func(in *AMCInput) { in.TotalAmount = decimal.Zero }, ErrNonPositiveAmount},
		"negative":      {func(in *AMCInput) { in.TotalAmount = dec("-5") }, ErrNonPositiveAmount},
		"empty rates":   {func(in *AMCInput) { in.Rates = nil }, ErrEmptyRates},
		"gst above one": {func(in *AMCInput) { in.GSTRate = 1.5 }, ErrInvalidGSTRate},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			s, err := newAssembler().AMC(in)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tc.err)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAMC_InvalidRateIsSkipped(t *testing.T) {
	s, err := newAssembler().AMC(AMCInput{
		Start:       calendar.Date(2023, 1, 5),
		TotalAmount: dec("40000"),
		Rates:       []float64{0.2, -0.1, math.NaN(), 0.3},
		GSTRate:     0.18,
	})
	require.NoError(t, err)

	require.Len(t, s.Warnings, 2)
	assert.Equal(t, 2, s.Warnings[0].ContractYear)
	assert.Equal(t, 3, s.Warnings[1].ContractYear)

	// Aligned start: two valid years of four full quarters each.
	assert.Len(t, s.Entries, 8)
	assert.True(t, s.TotalWithoutGST().Equal(dec("20000")), s.TotalWithoutGST().String())
	_, ok := s.Find(calendar.Key{Quarter: calendar.Q1, Year: 2024})
	assert.False(t, ok)
}

func TestFullQuarterAmountIsStableAcrossPasses(t *testing.T) {
	total := dec("40000.01")
	s, err := newAssembler().AMC(AMCInput{Start: calendar.Date(2023, 6, 30), TotalAmount: total, Rates: defaultRates, GSTRate: 0.18})
	require.NoError(t, err)

	for _, e := range s.Entries {
		for _, c := range e.Contributions {
			recomputed := FullQuarterAmount(total, defaultRates[c.ContractYear])
			assert.True(t, c.FullQuarterAmount.Equal(recomputed))
		}
	}
}
