package importer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/amc-schedule/internal/model"
)

var ErrNoRows = errors.New("sheet has no data rows")

// RowError reports a spreadsheet row that could not be read. Row is the
// 1-based sheet row number.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, %s: %v", e.Row, e.Column, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

func (e RowError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Row     int    `json:"row"`
		Column  string `json:"column,omitempty"`
		Message string `json:"error"`
	}{e.Row, e.Column, e.Err.Error()})
}

const (
	colName          = "name"
	colLocation      = "location"
	colUAT           = "uat"
	colValue         = "value"
	colQuantity      = "quantity"
	colWarrantyStart = "warrantyStart"
	colWarrantyYears = "warrantyYears"
)

var headerAliases = map[string]string{
	"item name":         colName,
	"itemname":          colName,
	"product name":      colName,
	"productname":       colName,
	"name":              colName,
	"location":          colLocation,
	"uat date":          colUAT,
	"uatdate":           colUAT,
	"date":              colUAT,
	"installation date": colUAT,
	"go live date":      colUAT,
	"purchase date":     colUAT,
	"invoice value":     colValue,
	"invoicevalue":      colValue,
	"cost":              colValue,
	"price":             colValue,
	"quantity":          colQuantity,
	"qty":               colQuantity,
	"warranty start":    colWarrantyStart,
	"warrantystart":     colWarrantyStart,
	"warranty years":    colWarrantyYears,
	"warrantyyears":     colWarrantyYears,
}

type row struct {
	number int
	cells  map[string]string
}

func (r row) get(col string) string {
	return strings.TrimSpace(r.cells[col])
}

// ReadAMC reads AMC products from the named sheet, or the first sheet when
// sheet is empty. Rows that cannot be read are reported and skipped.
func ReadAMC(r io.Reader, sheet string) ([]model.Product, []RowError, error) {
	rows, err := readRows(r, sheet)
	if err != nil {
		return nil, nil, err
	}

	var (
		products []model.Product
		rowErrs  []RowError
	)
	for _, rw := range rows {
		p := model.Product{
			ID:          fmt.Sprintf("row-%d", rw.number),
			ProductName: rw.get(colName),
			Location:    rw.get(colLocation),
			Quantity:    1,
		}
		if p.ProductName == "" {
			p.ProductName = fmt.Sprintf("Product %d", rw.number-1)
		}

		uat, err := NormalizeDate(rw.get(colUAT))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "UAT Date", Err: err})
			continue
		}
		p.UATDate = model.NewDate(uat)

		if p.InvoiceValue, err = ParseAmount(rw.get(colValue)); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "Invoice Value", Err: err})
			continue
		}
		if q, err := parseCount(rw.get(colQuantity)); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "Quantity", Err: err})
			continue
		} else if q > 0 {
			p.Quantity = q
		}
		products = append(products, p)
	}
	return products, rowErrs, nil
}

// ReadWarranty reads warranty items. A missing warranty start falls back to
// the UAT date when the schedule is calculated.
func ReadWarranty(r io.Reader, sheet string) ([]model.WarrantyProduct, []RowError, error) {
	rows, err := readRows(r, sheet)
	if err != nil {
		return nil, nil, err
	}

	var (
		products []model.WarrantyProduct
		rowErrs  []RowError
	)
	for _, rw := range rows {
		p := model.WarrantyProduct{
			ID:       fmt.Sprintf("row-%d", rw.number),
			ItemName: rw.get(colName),
			Location: rw.get(colLocation),
			Quantity: 1,
		}
		if p.ItemName == "" {
			p.ItemName = fmt.Sprintf("Item %d", rw.number-1)
		}

		uat, err := NormalizeDate(rw.get(colUAT))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "UAT Date", Err: err})
			continue
		}
		p.UATDate = model.NewDate(uat)

		if raw := rw.get(colWarrantyStart); raw != "" {
			start, err := NormalizeDate(raw)
			if err != nil {
				rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "Warranty Start", Err: err})
				continue
			}
			p.WarrantyStart = model.NewDate(start)
		}

		if p.Cost, err = ParseAmount(rw.get(colValue)); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "Cost", Err: err})
			continue
		}
		if q, err := parseCount(rw.get(colQuantity)); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "Quantity", Err: err})
			continue
		} else if q > 0 {
			p.Quantity = q
		}
		if p.WarrantyYears, err = parseCount(rw.get(colWarrantyYears)); err != nil {
			rowErrs = append(rowErrs, RowError{Row: rw.number, Column: "Warranty Years", Err: err})
			continue
		}
		products = append(products, p)
	}
	return products, rowErrs, nil
}

func readRows(r io.Reader, sheet string) ([]row, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	if sheet == "" {
		sheet = file.GetSheetName(0)
	}
	raw, err := file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(raw) < 2 {
		return nil, ErrNoRows
	}

	columns := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		columns[i] = headerAliases[strings.ToLower(strings.TrimSpace(h))]
	}

	rows := make([]row, 0, len(raw)-1)
	for i, cells := range raw[1:] {
		rw := row{number: i + 2, cells: make(map[string]string)}
		empty := true
		for j, cell := range cells {
			if j >= len(columns) || columns[j] == "" {
				continue
			}
			if _, seen := rw.cells[columns[j]]; seen {
				continue
			}
			rw.cells[columns[j]] = cell
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if empty || isTotalRow(rw.get(colName)) {
			continue
		}
		rows = append(rows, rw)
	}
	return rows, nil
}

func isTotalRow(name string) bool {
	switch strings.ToLower(name) {
	case "total", "grand total":
		return true
	}
	return false
}
