package schedule

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

// Entry is the billed total of one quarter occurrence.
type Entry struct {
	Key           calendar.Key
	Range         calendar.Period
	Total         decimal.Decimal
	WithoutGST    decimal.Decimal
	WithGST       decimal.Decimal
	Contributions []Contribution
}

func (e Entry) GSTAmount() decimal.Decimal {
	return e.WithGST.Sub(e.WithoutGST)
}

// Warning reports a skipped contract year.
type Warning struct {
	ContractYear int
	Rate         float64
	Message      string
}

type Schedule struct {
	Entries  []Entry
	Warnings []Warning
}

func (s *Schedule) TotalWithoutGST() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.WithoutGST)
	}
	return total
}

func (s *Schedule) TotalWithGST() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.WithGST)
	}
	return total
}

// Find returns the entry for key, if the schedule bills that quarter.
func (s *Schedule) Find(key calendar.Key) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Assembler turns billing inputs into quarter schedules. It holds no state
// between calls and is safe for concurrent use.
type Assembler struct {
	log zerolog.Logger
}

func NewAssembler(log zerolog.Logger) *Assembler {
	return &Assembler{log: log.With().Str("component", "schedule").Logger()}
}

// aggregate sums reconciled contributions per quarter occurrence and rounds
// each total once.
func aggregate(contributions []Contribution, gstRate float64) []Entry {
	byKey := make(map[calendar.Key]*Entry)
	for _, c := range contributions {
		e, ok := byKey[c.Occurrence.Key]
		if !ok {
			e = &Entry{
				Key:   c.Occurrence.Key,
				Range: c.Occurrence.Quarter,
				Total: decimal.Zero,
			}
			byKey[c.Occurrence.Key] = e
		}
		e.Total = e.Total.Add(c.Amount)
		e.Contributions = append(e.Contributions, c)
	}

	entries := make([]Entry, 0, len(byKey))
	for _, e := range byKey {
		sort.SliceStable(e.Contributions, func(i, j int) bool {
			return e.Contributions[i].ContractYear < e.Contributions[j].ContractYear
		})
		e.WithoutGST = RoundMoney(e.Total)
		e.WithGST = ApplyGST(e.WithoutGST, gstRate)
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Less(entries[j].Key)
	})
	return entries
}
