package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

func TestFitRates(t *testing.T) {
	assert.Equal(t, []float64{20, 22.5, 27.5, 30, 32.5, 35}, FitRates([]float64{20, 22.5, 27.5, 30}, 6))
	assert.Equal(t, []float64{20, 22.5}, FitRates([]float64{20, 22.5, 27.5, 30}, 2))
	assert.Equal(t, []float64{2.5, 5}, FitRates(nil, 2))
	assert.Nil(t, FitRates([]float64{20}, 0))
}

func TestSettingsNormalize(t *testing.T) {
	in := Settings{ROIRates: []float64{10, 20}, AMCYears: 3, GSTRate: 0.12}
	out := in.Normalize()

	assert.Equal(t, []float64{10, 20, 22.5}, out.ROIRates)
	assert.Equal(t, 0.40, out.AMCPercentage)
	assert.Equal(t, 0.12, out.GSTRate)
	assert.Equal(t, 3, out.WarrantyYears)
	assert.Equal(t, []float64{10, 20}, in.ROIRates)

	def := DefaultSettings().Normalize()
	assert.Equal(t, DefaultSettings(), def)

	empty := Settings{ROIRates: []float64{}}.Normalize()
	assert.Empty(t, empty.ROIRates)
	assert.Equal(t, 0, empty.AMCYears)
}

func TestSettingsOverlayKeepsDefaults(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, json.Unmarshal([]byte(`{"gstRate":0.05}`), &s))

	assert.Equal(t, 0.05, s.GSTRate)
	assert.Equal(t, 3, s.AMCStartOffsetYears)
	assert.Len(t, s.ROIRates, 4)
}

func TestDateJSON(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p1","uatDate":"2020-01-01","invoiceValue":100000}`), &p))
	assert.Equal(t, calendar.Date(2020, 1, 1), p.UATDate.Time)

	out, err := json.Marshal(p.UATDate)
	require.NoError(t, err)
	assert.JSONEq(t, `"2020-01-01"`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"uatDate":"2021-06-30T10:00:00Z"}`), &p))
	assert.Equal(t, calendar.Date(2021, 6, 30), p.UATDate.Time)

	var empty Product
	require.NoError(t, json.Unmarshal([]byte(`{"uatDate":""}`), &empty))
	assert.True(t, empty.UATDate.IsZero())
	assert.False(t, empty.UATDate.Invalid())
}

func TestDateJSON_InvalidKeepsRawValue(t *testing.T) {
	var products []Product
	body := `[{"id":"p1","uatDate":"2020-01-01"},{"id":"p2","uatDate":"31-02-2020"},{"id":"p3","uatDate":20210630}]`
	require.NoError(t, json.Unmarshal([]byte(body), &products))
	require.Len(t, products, 3)

	assert.False(t, products[0].UATDate.Invalid())
	assert.True(t, products[1].UATDate.Invalid())
	assert.Equal(t, "31-02-2020", products[1].UATDate.Raw())
	assert.Equal(t, "31-02-2020", products[1].UATDate.String())
	assert.True(t, products[2].UATDate.Invalid())
	assert.Equal(t, "20210630", products[2].UATDate.Raw())

	out, err := json.Marshal(products[1].UATDate)
	require.NoError(t, err)
	assert.JSONEq(t, `"31-02-2020"`, string(out))
}

func TestWarrantyStartInvalidDoesNotFallBack(t *testing.T) {
	var p WarrantyProduct
	require.NoError(t, json.Unmarshal([]byte(`{"uatDate":"2022-03-01","warrantyStart":"soon"}`), &p))

	assert.True(t, p.StartDate().Invalid())
	assert.Equal(t, "soon", p.StartDate().Raw())
}

func TestWarrantyStartFallsBackToUAT(t *testing.T) {
	p := WarrantyProduct{UATDate: NewDate(calendar.Date(2022, 3, 1))}
	assert.Equal(t, p.UATDate, p.StartDate())

	p.WarrantyStart = NewDate(calendar.Date(2022, 6, 1))
	assert.Equal(t, calendar.Date(2022, 6, 1), p.StartDate().Time)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]ProductResult{
		{TotalAmountWithGST: 100},
		{Error: "bad date"},
		{TotalAmountWithGST: 50.5},
	})
	assert.Equal(t, BatchSummary{Processed: 3, Successful: 2, Errors: 1, TotalValue: 150.5}, s)
}
