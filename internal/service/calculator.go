package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/amc-schedule/internal/calendar"
	"github.com/nurpe/amc-schedule/internal/model"
	"github.com/nurpe/amc-schedule/internal/schedule"
)

// Calculator turns single products into schedule results. Every failure,
// including a panic, comes back as a result with Error set.
type Calculator struct {
	assembler *schedule.Assembler
	log       zerolog.Logger
}

func NewCalculator(assembler *schedule.Assembler, log zerolog.Logger) *Calculator {
	return &Calculator{assembler: assembler, log: log.With().Str("component", "calculator").Logger()}
}

func (c *Calculator) AMC(_ context.Context, p model.Product, settings model.Settings) (res model.ProductResult) {
	res = model.ProductResult{
		Kind:         model.KindAMC,
		ID:           p.ID,
		ProductName:  p.ProductName,
		Location:     p.Location,
		UATDate:      p.UATDate.String(),
		InvoiceValue: p.InvoiceValue,
		Quantity:     quantity(p.Quantity),
		Quarters:     []model.QuarterEntry{},
	}
	defer c.recoverInto(&res)

	if p.UATDate.Invalid() {
		return c.fail(res, fmt.Errorf("%w: invalid UAT date format: %s", ErrInvalidInput, p.UATDate.Raw()))
	}

	settings = settings.Normalize()
	years := settings.AMCYears
	if p.AMCYears > 0 {
		years = p.AMCYears
	}
	percents := settings.ROIRates
	if p.ROIRates != nil {
		percents = p.ROIRates
	}
	if len(percents) > 0 {
		percents = model.FitRates(percents, years)
	}
	amcPct := settings.AMCPercentage
	if p.AMCPercentage != nil {
		amcPct = *p.AMCPercentage
	}
	gst := settings.GSTRate
	if p.GSTRate != nil {
		gst = *p.GSTRate
	}

	if !finite(p.InvoiceValue) || !finite(amcPct) {
		return c.fail(res, fmt.Errorf("%w: invoice value and amc percentage must be numbers", ErrInvalidInput))
	}
	if amcPct <= 0 || amcPct > 1 {
		return c.fail(res, fmt.Errorf("%w: amc percentage must be in (0, 1]", ErrInvalidInput))
	}

	start := p.UATDate.Time
	if !start.IsZero() {
		start = calendar.AddYears(start, settings.AMCStartOffsetYears)
		res.AMCStartDate = calendar.FormatISO(start)
	}

	total := decimal.NewFromFloat(p.InvoiceValue).Mul(decimal.NewFromFloat(amcPct))
	sched, err := c.assembler.AMC(schedule.AMCInput{
		Start:       start,
		TotalAmount: total,
		Rates:       fractions(percents),
		GSTRate:     gst,
	})
	if err != nil {
		return c.fail(res, err)
	}

	res.TotalAMCValue = schedule.RoundMoney(total).InexactFloat64()
	fill(&res, sched, percents)
	return res
}

func (c *Calculator) Warranty(_ context.Context, p model.WarrantyProduct, settings model.Settings) (res model.ProductResult) {
	start := p.StartDate()
	res = model.ProductResult{
		Kind:              model.KindWarranty,
		ID:                p.ID,
		ProductName:       p.ItemName,
		Location:          p.Location,
		UATDate:           p.UATDate.String(),
		WarrantyStartDate: start.String(),
		InvoiceValue:      p.Cost,
		Quantity:          quantity(p.Quantity),
		Quarters:          []model.QuarterEntry{},
	}
	defer c.recoverInto(&res)

	if p.UATDate.Invalid() {
		return c.fail(res, fmt.Errorf("%w: invalid UAT date format: %s", ErrInvalidInput, p.UATDate.Raw()))
	}
	if start.Invalid() {
		return c.fail(res, fmt.Errorf("%w: invalid warranty start date format: %s", ErrInvalidInput, start.Raw()))
	}

	settings = settings.Normalize()
	years := settings.WarrantyYears
	if p.WarrantyYears > 0 {
		years = p.WarrantyYears
	}
	pct := settings.WarrantyPercentage
	if p.WarrantyPercentage != nil {
		pct = *p.WarrantyPercentage
	}
	gst := settings.GSTRate
	if p.GSTRate != nil {
		gst = *p.GSTRate
	}

	if !finite(p.Cost) || !finite(pct) {
		return c.fail(res, fmt.Errorf("%w: cost and warranty percentage must be numbers", ErrInvalidInput))
	}
	if pct <= 0 || pct > 1 {
		return c.fail(res, fmt.Errorf("%w: warranty percentage must be in (0, 1]", ErrInvalidInput))
	}

	total := decimal.NewFromFloat(p.Cost).Mul(decimal.NewFromFloat(pct))
	in := schedule.WarrantyInput{
		Start:       start.Time,
		TotalAmount: total,
		Years:       years,
		GSTRate:     gst,
	}
	sched, err := c.assembler.Warranty(in)
	if err != nil {
		return c.fail(res, err)
	}

	res.WarrantyEndDate = calendar.FormatISO(in.Window().End)
	res.TotalWarrantyValue = schedule.RoundMoney(total).InexactFloat64()
	fill(&res, sched, nil)
	return res
}

func (c *Calculator) fail(res model.ProductResult, err error) model.ProductResult {
	c.log.Warn().Err(err).Str("product_id", res.ID).Str("kind", string(res.Kind)).Msg("product rejected")
	res.Quarters = []model.QuarterEntry{}
	res.TotalQuarters = 0
	res.Error = err.Error()
	return res
}

func (c *Calculator) recoverInto(res *model.ProductResult) {
	if r := recover(); r != nil {
		c.log.Error().Interface("panic", r).Str("product_id", res.ID).Msg("product calculation panicked")
		*res = c.fail(*res, fmt.Errorf("unexpected error: %v", r))
	}
}

func fill(res *model.ProductResult, sched *schedule.Schedule, percents []float64) {
	res.Quarters = make([]model.QuarterEntry, 0, len(sched.Entries))
	for _, e := range sched.Entries {
		key := e.Key.String()
		entry := model.QuarterEntry{
			ID:           res.ID + "_" + key,
			QuarterKey:   key,
			Quarter:      e.Key.Quarter.Label(),
			Year:         e.Key.Year,
			StartDate:    calendar.FormatISO(e.Range.Start),
			EndDate:      calendar.FormatISO(e.Range.End),
			BaseAmount:   e.WithoutGST.InexactFloat64(),
			GSTAmount:    e.GSTAmount().InexactFloat64(),
			TotalAmount:  e.WithGST.InexactFloat64(),
			SplitDetails: make([]model.QuarterContribution, 0, len(e.Contributions)),
		}
		for _, c := range e.Contributions {
			detail := model.QuarterContribution{
				ContractYear:      c.ContractYear + 1,
				FullQuarterAmount: c.FullQuarterAmount.InexactFloat64(),
				ProratedAmount:    c.Prorated.InexactFloat64(),
				ActualAmount:      c.Amount.InexactFloat64(),
				Classification:    string(c.Classification),
				OverlapDays:       c.Occurrence.OverlapDays,
				TotalDays:         c.Occurrence.TotalDays,
				OverlapStart:      calendar.FormatISO(c.Occurrence.Overlap.Start),
				OverlapEnd:        calendar.FormatISO(c.Occurrence.Overlap.End),
			}
			if c.ContractYear < len(percents) {
				detail.ROIRate = percents[c.ContractYear]
			}
			entry.SplitDetails = append(entry.SplitDetails, detail)
		}
		res.Quarters = append(res.Quarters, entry)
	}
	res.TotalQuarters = len(res.Quarters)
	res.TotalAmountWithoutGST = sched.TotalWithoutGST().InexactFloat64()
	res.TotalAmountWithGST = sched.TotalWithGST().InexactFloat64()
	for _, w := range sched.Warnings {
		res.Warnings = append(res.Warnings, w.Message)
	}
}

func fractions(percents []float64) []float64 {
	out := make([]float64, len(percents))
	for i, p := range percents {
		out[i] = p / 100
	}
	return out
}

func quantity(q int) int {
	if q <= 0 {
		return 1
	}
	return q
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func fallbackID(index int) string {
	return "product-" + strconv.Itoa(index+1)
}
