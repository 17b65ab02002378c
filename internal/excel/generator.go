package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/amc-schedule/internal/model"
	"github.com/nurpe/amc-schedule/internal/report"
)

const (
	scheduleSheet = "Schedule"
	quarterSheet  = "Quarter Summary"
	paymentSheet  = "Payment Status"
	errorSheet    = "Errors"

	moneyFormat = "#,##0.00"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

type styles struct {
	header  int
	money   int
	paid    int
	pending int
	date    int
	total   int
}

func (g *Generator) Generate(doc report.Document) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", scheduleSheet); err != nil {
		return nil, err
	}
	st, err := newStyles(file)
	if err != nil {
		return nil, err
	}

	g.writeSchedule(file, st, doc)

	if _, err := file.NewSheet(quarterSheet); err != nil {
		return nil, err
	}
	g.writeQuarters(file, st, doc)

	if _, err := file.NewSheet(paymentSheet); err != nil {
		return nil, err
	}
	g.writePayments(file, st, doc)

	if failed := doc.Failed(); len(failed) > 0 {
		if _, err := file.NewSheet(errorSheet); err != nil {
			return nil, err
		}
		g.writeErrors(file, st, failed)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newStyles(file *excelize.File) (styles, error) {
	var st styles
	var err error
	numFmt := moneyFormat

	if st.header, err = file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	}); err != nil {
		return st, err
	}
	if st.money, err = file.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return st, err
	}
	if st.paid, err = file.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	}); err != nil {
		return st, err
	}
	if st.pending, err = file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
	}); err != nil {
		return st, err
	}
	if st.date, err = file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFEB9C"}},
	}); err != nil {
		return st, err
	}
	if st.total, err = file.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &numFmt,
	}); err != nil {
		return st, err
	}
	return st, nil
}

func (g *Generator) writeSchedule(file *excelize.File, st styles, doc report.Document) {
	sheet := scheduleSheet
	keys := doc.QuarterKeys()

	headers := []string{"ID", "Product", "Location", "UAT Date", startLabel(doc.Kind), "Value", "Quantity"}
	headers = append(headers, keys...)
	headers = append(headers, "Total Without GST", "Total With GST")
	writeHeader(file, st, sheet, 1, headers)

	row := 2
	for _, r := range doc.Succeeded() {
		amounts := make(map[string]float64, len(r.Quarters))
		for _, q := range r.Quarters {
			amounts[q.QuarterKey] = q.TotalAmount
		}
		start := r.AMCStartDate
		if doc.Kind == model.KindWarranty {
			start = r.WarrantyStartDate
		}
		values := []any{r.ID, r.ProductName, r.Location, r.UATDate, start, r.InvoiceValue, r.Quantity}
		for col, v := range values {
			setCell(file, sheet, col+1, row, v)
		}
		setStyle(file, sheet, 6, row, st.money)

		for i, key := range keys {
			col := len(values) + 1 + i
			v, ok := amounts[key]
			if !ok {
				continue
			}
			setCell(file, sheet, col, row, v)
			style := st.money
			if doc.Statuses.IsPaid(key) {
				style = st.paid
			}
			setStyle(file, sheet, col, row, style)
		}

		col := len(values) + len(keys) + 1
		setCell(file, sheet, col, row, r.TotalAmountWithoutGST)
		setCell(file, sheet, col+1, row, r.TotalAmountWithGST)
		setStyle(file, sheet, col, row, st.money)
		setStyle(file, sheet, col+1, row, st.money)
		row++
	}

	_ = file.SetColWidth(sheet, "A", "A", 16)
	_ = file.SetColWidth(sheet, "B", "C", 28)
	_ = file.SetColWidth(sheet, "D", "E", 14)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = file.SetColWidth(sheet, "F", lastCol, 14)
	_ = file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	})
}

func (g *Generator) writeQuarters(file *excelize.File, st styles, doc report.Document) {
	sheet := quarterSheet
	writeHeader(file, st, sheet, 1, []string{
		"Quarter", "Start Date", "End Date", "Products", "Amount (Without GST)", "GST", "Amount (With GST)",
	})

	for i, q := range doc.Quarters {
		row := i + 2
		values := []any{q.QuarterKey, q.StartDate, q.EndDate, q.Products, q.BaseAmount, q.GSTAmount, q.TotalAmount}
		for col, v := range values {
			setCell(file, sheet, col+1, row, v)
		}
		for col := 5; col <= 7; col++ {
			setStyle(file, sheet, col, row, st.money)
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 14)
	_ = file.SetColWidth(sheet, "B", "D", 12)
	_ = file.SetColWidth(sheet, "E", "G", 22)
}

func (g *Generator) writePayments(file *excelize.File, st styles, doc report.Document) {
	sheet := paymentSheet
	writeHeader(file, st, sheet, 1, []string{
		"Quarter", "Amount (With GST)", "Status", "Payment Date", "Days Overdue",
	})

	row := 2
	for _, q := range doc.Quarters {
		setCell(file, sheet, 1, row, q.QuarterKey)
		setCell(file, sheet, 2, row, q.TotalAmount)
		setCell(file, sheet, 3, row, q.Status)
		if q.Status == report.StatusPaid {
			setStyle(file, sheet, 2, row, st.paid)
			setCell(file, sheet, 4, row, q.PaidDate)
			setStyle(file, sheet, 4, row, st.date)
		} else {
			setStyle(file, sheet, 2, row, st.money)
			setStyle(file, sheet, 3, row, st.pending)
			if q.DaysOverdue > 0 {
				setCell(file, sheet, 5, row, q.DaysOverdue)
			}
		}
		row++
	}

	row++
	totals := []struct {
		label string
		value float64
	}{
		{"Total", doc.Summary.Total},
		{"Total Paid", doc.Summary.Paid},
		{"Total Pending", doc.Summary.Balance},
	}
	for _, t := range totals {
		setCell(file, sheet, 1, row, t.label)
		setCell(file, sheet, 2, row, t.value)
		setStyle(file, sheet, 1, row, st.total)
		setStyle(file, sheet, 2, row, st.total)
		row++
	}
	setCell(file, sheet, 1, row, "Quarters Paid")
	setCell(file, sheet, 2, row, fmt.Sprintf("%d / %d", doc.Summary.PaidQuarters, doc.Summary.TotalQuarters))

	_ = file.SetColWidth(sheet, "A", "A", 16)
	_ = file.SetColWidth(sheet, "B", "B", 20)
	_ = file.SetColWidth(sheet, "C", "E", 14)
}

func (g *Generator) writeErrors(file *excelize.File, st styles, failed []model.ProductResult) {
	sheet := errorSheet
	writeHeader(file, st, sheet, 1, []string{"ID", "Product", "Error"})
	for i, r := range failed {
		row := i + 2
		setCell(file, sheet, 1, row, r.ID)
		setCell(file, sheet, 2, row, r.ProductName)
		setCell(file, sheet, 3, row, r.Error)
	}
	_ = file.SetColWidth(sheet, "A", "B", 24)
	_ = file.SetColWidth(sheet, "C", "C", 60)
}

func startLabel(kind model.ScheduleKind) string {
	if kind == model.KindWarranty {
		return "Warranty Start"
	}
	return "AMC Start"
}

func writeHeader(file *excelize.File, st styles, sheet string, row int, headers []string) {
	for i, h := range headers {
		setCell(file, sheet, i+1, row, strings.TrimSpace(h))
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(headers), row)
	_ = file.SetCellStyle(sheet, first, last, st.header)
}

func setCell(file *excelize.File, sheet string, col, row int, value any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = file.SetCellValue(sheet, cell, value)
}

func setStyle(file *excelize.File, sheet string, col, row, style int) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = file.SetCellStyle(sheet, cell, cell, style)
}
