package model

import "math"

const rateStepForExtraYear = 2.5

// Settings is the read-only configuration shared by every product of a batch.
// ROI rates are percentages; the other rates are fractions.
type Settings struct {
	ROIRates            []float64 `json:"roiRates"`
	AMCPercentage       float64   `json:"amcPercentage"`
	AMCYears            int       `json:"amcYears"`
	AMCStartOffsetYears int       `json:"amcStartOffsetYears"`
	GSTRate             float64   `json:"gstRate"`
	WarrantyPercentage  float64   `json:"warrantyPercentage"`
	WarrantyYears       int       `json:"warrantyYears"`
}

func DefaultSettings() Settings {
	return Settings{
		ROIRates:            []float64{20, 22.5, 27.5, 30},
		AMCPercentage:       0.40,
		AMCYears:            4,
		AMCStartOffsetYears: 3,
		GSTRate:             0.18,
		WarrantyPercentage:  0.15,
		WarrantyYears:       3,
	}
}

// Normalize fills unset fields from defaults and fits the rate list to
// AMCYears: extra years continue the last rate in 2.5 point steps, surplus
// rates are dropped. An empty rate list stays empty so that it is rejected
// when a schedule is built. The receiver is not modified.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	out := s
	if out.AMCPercentage <= 0 || math.IsNaN(out.AMCPercentage) {
		out.AMCPercentage = def.AMCPercentage
	}
	if out.AMCYears <= 0 {
		out.AMCYears = len(out.ROIRates)
	}
	if out.AMCStartOffsetYears < 0 {
		out.AMCStartOffsetYears = def.AMCStartOffsetYears
	}
	if out.WarrantyPercentage <= 0 || math.IsNaN(out.WarrantyPercentage) {
		out.WarrantyPercentage = def.WarrantyPercentage
	}
	if out.WarrantyYears <= 0 {
		out.WarrantyYears = def.WarrantyYears
	}
	if len(out.ROIRates) > 0 {
		out.ROIRates = FitRates(out.ROIRates, out.AMCYears)
	}
	return out
}

// FitRates returns a copy of rates with exactly years elements.
func FitRates(rates []float64, years int) []float64 {
	if years <= 0 {
		return nil
	}
	out := make([]float64, years)
	n := copy(out, rates)
	last := 0.0
	if n > 0 {
		last = out[n-1]
	}
	for i := n; i < years; i++ {
		last += rateStepForExtraYear
		out[i] = last
	}
	return out
}
