package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes one row per product with a column per quarter holding the
// GST inclusive amount, followed by totals.
func WriteCSV(w io.Writer, doc Document) error {
	keys := doc.QuarterKeys()
	header := []string{"ID", "Product", "Location", "UAT Date", "Start Date", "Invoice Value", "Quantity"}
	header = append(header, keys...)
	header = append(header, "Total Without GST", "Total With GST", "Error")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range doc.Results {
		amounts := make(map[string]float64, len(r.Quarters))
		for _, q := range r.Quarters {
			amounts[q.QuarterKey] = q.TotalAmount
		}
		start := r.AMCStartDate
		if start == "" {
			start = r.WarrantyStartDate
		}

		row := []string{
			r.ID,
			r.ProductName,
			r.Location,
			r.UATDate,
			start,
			money(r.InvoiceValue),
			strconv.Itoa(r.Quantity),
		}
		for _, k := range keys {
			if v, ok := amounts[k]; ok {
				row = append(row, money(v))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, money(r.TotalAmountWithoutGST), money(r.TotalAmountWithGST), r.Error)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
