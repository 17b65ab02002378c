package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
	"github.com/nurpe/amc-schedule/internal/model"
)

const (
	StatusPaid    = "PAID"
	StatusPending = "PENDING"
)

// QuarterRow aggregates one quarter across every product of a schedule.
type QuarterRow struct {
	QuarterKey  string  `json:"quarterKey"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	BaseAmount  float64 `json:"baseAmount"`
	GSTAmount   float64 `json:"gstAmount"`
	TotalAmount float64 `json:"totalAmount"`
	Products    int     `json:"products"`
	Status      string  `json:"status"`
	PaidDate    string  `json:"paidDate,omitempty"`
	DaysOverdue int     `json:"daysOverdue"`
}

type PaymentSummary struct {
	Total         float64 `json:"total"`
	Paid          float64 `json:"paid"`
	Balance       float64 `json:"balance"`
	PaidQuarters  int     `json:"paidQuarters"`
	TotalQuarters int     `json:"totalQuarters"`
}

// Document is everything an exporter renders.
type Document struct {
	Kind        model.ScheduleKind    `json:"kind"`
	Title       string                `json:"title"`
	GeneratedAt time.Time             `json:"exportDate"`
	Results     []model.ProductResult `json:"products"`
	Quarters    []QuarterRow          `json:"quarters"`
	Summary     PaymentSummary        `json:"summary"`
	Statuses    model.PaymentStatuses `json:"paymentStatus"`
}

// Succeeded returns the products that have a schedule.
func (d Document) Succeeded() []model.ProductResult {
	out := make([]model.ProductResult, 0, len(d.Results))
	for _, r := range d.Results {
		if !r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

func (d Document) Failed() []model.ProductResult {
	var out []model.ProductResult
	for _, r := range d.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// QuarterKeys lists every quarter billed by any product, in calendar order.
func (d Document) QuarterKeys() []string {
	keys := make([]string, len(d.Quarters))
	for i, q := range d.Quarters {
		keys[i] = q.QuarterKey
	}
	return keys
}

func Title(kind model.ScheduleKind) string {
	if kind == model.KindWarranty {
		return "Warranty Payment Report"
	}
	return "AMC Payment Report"
}

func Build(kind model.ScheduleKind, results []model.ProductResult, statuses model.PaymentStatuses, now time.Time) Document {
	if statuses == nil {
		statuses = model.PaymentStatuses{}
	}
	quarters := QuarterSummary(results, statuses, now)
	return Document{
		Kind:        kind,
		Title:       Title(kind),
		GeneratedAt: now,
		Results:     results,
		Quarters:    quarters,
		Summary:     Summarize(quarters),
		Statuses:    statuses,
	}
}

type accumulator struct {
	key      calendar.Key
	base     decimal.Decimal
	gst      decimal.Decimal
	total    decimal.Decimal
	products int
}

// QuarterSummary adds up every product's quarter amounts per quarter key and
// attaches the payment status of each quarter.
func QuarterSummary(results []model.ProductResult, statuses model.PaymentStatuses, now time.Time) []QuarterRow {
	byKey := make(map[calendar.Key]*accumulator)
	for _, r := range results {
		if r.Failed() {
			continue
		}
		for _, q := range r.Quarters {
			key, err := calendar.ParseKey(q.QuarterKey)
			if err != nil {
				continue
			}
			acc, ok := byKey[key]
			if !ok {
				acc = &accumulator{key: key}
				byKey[key] = acc
			}
			acc.base = acc.base.Add(decimal.NewFromFloat(q.BaseAmount))
			acc.gst = acc.gst.Add(decimal.NewFromFloat(q.GSTAmount))
			acc.total = acc.total.Add(decimal.NewFromFloat(q.TotalAmount))
			acc.products++
		}
	}

	rows := make([]QuarterRow, 0, len(byKey))
	for _, acc := range byKey {
		period := acc.key.Range()
		status := statuses[acc.key.String()]
		row := QuarterRow{
			QuarterKey:  acc.key.String(),
			StartDate:   calendar.FormatISO(period.Start),
			EndDate:     calendar.FormatISO(period.End),
			BaseAmount:  acc.base.InexactFloat64(),
			GSTAmount:   acc.gst.InexactFloat64(),
			TotalAmount: acc.total.InexactFloat64(),
			Products:    acc.products,
			Status:      StatusPending,
		}
		if status.Paid {
			row.Status = StatusPaid
			row.PaidDate = status.Date
		} else {
			row.DaysOverdue = DaysOverdue(acc.key, now)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, _ := calendar.ParseKey(rows[i].QuarterKey)
		b, _ := calendar.ParseKey(rows[j].QuarterKey)
		return a.Less(b)
	})
	return rows
}

// DaysOverdue counts the days since the quarter ended; zero while it runs.
func DaysOverdue(key calendar.Key, now time.Time) int {
	end := key.Range().End
	today := calendar.DateOnly(now)
	if !today.After(end) {
		return 0
	}
	return calendar.DaysBetween(end, today)
}

func Summarize(rows []QuarterRow) PaymentSummary {
	total := decimal.Zero
	paid := decimal.Zero
	var s PaymentSummary
	for _, r := range rows {
		amount := decimal.NewFromFloat(r.TotalAmount)
		total = total.Add(amount)
		if r.Status == StatusPaid {
			paid = paid.Add(amount)
			s.PaidQuarters++
		}
	}
	s.TotalQuarters = len(rows)
	s.Total = total.InexactFloat64()
	s.Paid = paid.InexactFloat64()
	s.Balance = total.Sub(paid).InexactFloat64()
	return s
}
