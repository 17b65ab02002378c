package calendar

import "time"

// Period is an inclusive range of whole days.
type Period struct {
	Start time.Time
	End   time.Time
}

func NewPeriod(start, end time.Time) Period {
	return Period{Start: DateOnly(start), End: DateOnly(end)}
}

func (p Period) Days() int {
	return DaysInclusive(p.Start, p.End)
}

func (p Period) Contains(t time.Time) bool {
	d := DateOnly(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Overlap returns the intersection of two periods. The second value is false
// when they share no day.
func (p Period) Overlap(other Period) (Period, bool) {
	start := p.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := p.End
	if other.End.Before(end) {
		end = other.End
	}
	if start.After(end) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

func (p Period) String() string {
	return "[" + FormatISO(p.Start) + ", " + FormatISO(p.End) + "]"
}

// ContractYears splits a contract starting at start into n consecutive
// yearly windows. Window k runs from start+k years to the day before
// start+(k+1) years.
func ContractYears(start time.Time, n int) []Period {
	if n <= 0 {
		return nil
	}
	start = DateOnly(start)
	years := make([]Period, 0, n)
	for k := 0; k < n; k++ {
		years = append(years, Period{
			Start: AddYears(start, k),
			End:   AddDays(AddYears(start, k+1), -1),
		})
	}
	return years
}
