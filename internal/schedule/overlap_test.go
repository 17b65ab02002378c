package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

func TestOverlappingQuarters_AlignedYear(t *testing.T) {
	occ := OverlappingQuarters(calendar.Period{Start: calendar.Date(2023, 1, 5), End: calendar.Date(2024, 1, 4)})
	require.Len(t, occ, 4)
	for i, o := range occ {
		assert.Equal(t, calendar.Key{Quarter: calendar.All[i], Year: 2023}, o.Key)
		assert.True(t, o.Full())
	}
}

func TestOverlappingQuarters_MidQuarterYearTouchesFive(t *testing.T) {
	occ := OverlappingQuarters(calendar.Period{Start: calendar.Date(2023, 1, 1), End: calendar.Date(2023, 12, 31)})
	require.Len(t, occ, 5)

	assert.Equal(t, calendar.Key{Quarter: calendar.Q4, Year: 2022}, occ[0].Key)
	assert.Equal(t, 4, occ[0].OverlapDays)
	assert.Equal(t, 92, occ[0].TotalDays)

	assert.Equal(t, calendar.Key{Quarter: calendar.Q4, Year: 2023}, occ[4].Key)
	assert.Equal(t, 88, occ[4].OverlapDays)
}

func TestOverlappingQuarters_EmptyWindow(t *testing.T) {
	assert.Empty(t, OverlappingQuarters(calendar.Period{Start: calendar.Date(2023, 2, 1), End: calendar.Date(2023, 1, 1)}))
}

func TestProrate(t *testing.T) {
	assert.True(t, Prorate(dec("2000"), 92, 92).Equal(dec("2000")))
	assert.True(t, Prorate(dec("910"), 1, 91).Equal(dec("10")))
	assert.True(t, Prorate(dec("2000"), 5, 0).IsZero())
}

func TestReconcile_SingleTouchIsUnsplit(t *testing.T) {
	in := []Contribution{{
		ContractYear:      0,
		FullQuarterAmount: dec("100"),
		Prorated:          dec("100"),
		Occurrence:        Occurrence{Key: calendar.Key{Quarter: calendar.Q2, Year: 2023}},
	}}
	out := Reconcile(in)
	assert.Equal(t, Unsplit, out[0].Classification)
	assert.True(t, out[0].Amount.Equal(dec("100")))
	assert.Empty(t, in[0].Classification)
}

func TestReconcile_OrderIndependent(t *testing.T) {
	later := Contribution{
		ContractYear:      0,
		FullQuarterAmount: dec("100"),
		Prorated:          dec("90"),
		Occurrence:        Occurrence{Key: calendar.Key{Quarter: calendar.Q4, Year: 2023}},
	}
	earlier := Contribution{
		ContractYear:      0,
		FullQuarterAmount: dec("100"),
		Prorated:          dec("30"),
		Occurrence:        Occurrence{Key: calendar.Key{Quarter: calendar.Q4, Year: 2022}},
	}

	out := Reconcile([]Contribution{later, earlier})
	assert.Equal(t, Residual, out[0].Classification)
	assert.True(t, out[0].Amount.Equal(dec("70")))
	assert.Equal(t, FirstOccurrence, out[1].Classification)
	assert.True(t, out[1].Amount.Equal(dec("30")))
}

func TestReconcile_ResidualClampedAtZero(t *testing.T) {
	out := Reconcile([]Contribution{
		{FullQuarterAmount: dec("100"), Prorated: dec("120"), Occurrence: Occurrence{Key: calendar.Key{Quarter: calendar.Q1, Year: 2023}}},
		{FullQuarterAmount: dec("100"), Prorated: dec("10"), Occurrence: Occurrence{Key: calendar.Key{Quarter: calendar.Q1, Year: 2024}}},
	})
	assert.True(t, out[1].Amount.IsZero())
	assert.Equal(t, Residual, out[1].Classification)
}
