package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/amc-schedule/internal/report"
)

const fontName = "Helvetica"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(doc report.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(fontName, "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, "Generated on "+doc.GeneratedAt.Format("02 Jan 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Payment Summary")
	widths := []float64{60, 50}
	drawTableRow(pdf, []string{"Metric", "Amount"}, widths, true)
	drawTableRow(pdf, []string{"Total Amount", formatAmount(doc.Summary.Total)}, widths, false)
	drawTableRow(pdf, []string{"Paid Amount", formatAmount(doc.Summary.Paid)}, widths, false)
	drawTableRow(pdf, []string{"Balance", formatAmount(doc.Summary.Balance)}, widths, false)
	drawTableRow(pdf, []string{
		"Quarters Paid",
		fmt.Sprintf("%d / %d", doc.Summary.PaidQuarters, doc.Summary.TotalQuarters),
	}, widths, false)
	pdf.Ln(4)

	section(pdf, "Quarter Schedule")
	widths = []float64{30, 45, 30, 35, 30}
	drawTableRow(pdf, []string{"Quarter", "Amount (With GST)", "Status", "Payment Date", "Days Overdue"}, widths, true)
	for _, q := range doc.Quarters {
		overdue := ""
		if q.DaysOverdue > 0 {
			overdue = fmt.Sprintf("%d", q.DaysOverdue)
		}
		if q.Status == report.StatusPaid {
			pdf.SetTextColor(0, 128, 0)
		}
		drawTableRow(pdf, []string{q.QuarterKey, formatAmount(q.TotalAmount), q.Status, safeValue(q.PaidDate), overdue}, widths, false)
		pdf.SetTextColor(0, 0, 0)
	}

	if failed := doc.Failed(); len(failed) > 0 {
		pdf.Ln(4)
		section(pdf, "Failed Products")
		pdf.SetFont(fontName, "", 10)
		pdf.SetTextColor(200, 0, 0)
		for _, r := range failed {
			name := r.ProductName
			if strings.TrimSpace(name) == "" {
				name = r.ID
			}
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("%s: %s", name, r.Error)), "", "L", false)
		}
		pdf.SetTextColor(0, 0, 0)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	fill := false
	if header {
		style = "B"
		fill = true
		pdf.SetFillColor(217, 225, 242)
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 && !header {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, fill, 0, "")
	}
	pdf.Ln(-1)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
