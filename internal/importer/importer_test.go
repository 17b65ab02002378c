package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/amc-schedule/internal/calendar"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2023-01-01", "2023-01-01"},
		{" 2023-01-01 ", "2023-01-01"},
		{"44562", "2022-01-01"},
		{"44487", "2021-10-18"},
		{"59", "1900-02-28"},
		{"61", "1900-03-01"},
		{"18-Oct-21", "2021-10-18"},
		{"5-jan-2023", "2023-01-05"},
		{"2023-01-05T10:30:00Z", "2023-01-05"},
		{"05/01/2023", "2023-01-05"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := NormalizeDate(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, calendar.FormatISO(got))
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "31-Feb-23", "12-Foo-23", "0", "2023/13/45"} {
		_, err := NormalizeDate(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"100000", 100000},
		{"₹1,00,000.00", 100000},
		{"$ 2,500", 2500},
		{"1.5 crore", 15000000},
		{"2Cr", 20000000},
		{"3 lakh", 300000},
		{"2.5 Lac", 250000},
		{"Rs. 750", 750},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseAmount(tc.raw)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-6)
		})
	}

	for _, raw := range []string{"", "abc", "12 million", "1.2.3"} {
		_, err := ParseAmount(raw)
		assert.Error(t, err, raw)
	}
}

func workbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestReadAMC(t *testing.T) {
	r := workbook(t, [][]any{
		{"Item Name", "Location", "UAT Date", "Invoice Value", "Quantity"},
		{"Router", "Pune", "2020-01-01", "₹1,00,000", 2},
		{"Switch", "Delhi", 44562, "1.5 lakh", nil},
		{"Broken", "Mumbai", "not a date", "1000", 1},
		{nil, nil, nil, nil, nil},
		{"Grand Total", nil, nil, "250000", nil},
	})

	products, rowErrs, err := ReadAMC(r, "")
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "row-2", products[0].ID)
	assert.Equal(t, "Router", products[0].ProductName)
	assert.Equal(t, "Pune", products[0].Location)
	assert.Equal(t, "2020-01-01", products[0].UATDate.String())
	assert.InDelta(t, 100000, products[0].InvoiceValue, 1e-9)
	assert.Equal(t, 2, products[0].Quantity)

	assert.Equal(t, "2022-01-01", products[1].UATDate.String())
	assert.InDelta(t, 150000, products[1].InvoiceValue, 1e-9)
	assert.Equal(t, 1, products[1].Quantity)

	require.Len(t, rowErrs, 1)
	assert.Equal(t, 4, rowErrs[0].Row)
	assert.Equal(t, "UAT Date", rowErrs[0].Column)
	assert.Contains(t, rowErrs[0].Error(), "row 4")
}

func TestReadWarranty(t *testing.T) {
	r := workbook(t, [][]any{
		{"Item Name", "Cost", "UAT Date", "Warranty Start", "Warranty Years", "Qty"},
		{"Camera", "50,000", "2023-01-01", "2023-05-20", 3, 4},
		{"Sensor", "10000", "18-Oct-21", nil, nil, nil},
	})

	products, rowErrs, err := ReadWarranty(r, "Sheet1")
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, products, 2)

	assert.Equal(t, "2023-05-20", products[0].StartDate().String())
	assert.Equal(t, 3, products[0].WarrantyYears)
	assert.Equal(t, 4, products[0].Quantity)
	assert.InDelta(t, 50000, products[0].Cost, 1e-9)

	assert.Equal(t, "2021-10-18", products[1].StartDate().String())
	assert.Zero(t, products[1].WarrantyYears)
}

func TestReadAMC_NoRows(t *testing.T) {
	r := workbook(t, [][]any{{"Item Name", "UAT Date"}})

	_, _, err := ReadAMC(r, "")
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestReadAMC_NotAWorkbook(t *testing.T) {
	_, _, err := ReadAMC(bytes.NewReader([]byte("plain text")), "")
	assert.Error(t, err)
}
