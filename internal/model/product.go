package model

type ScheduleKind string

const (
	KindAMC      ScheduleKind = "amc"
	KindWarranty ScheduleKind = "warranty"
)

func (k ScheduleKind) Valid() bool {
	return k == KindAMC || k == KindWarranty
}

// Product is one AMC line. Optional fields override the batch settings.
type Product struct {
	ID            string    `json:"id"`
	ProductName   string    `json:"productName"`
	Location      string    `json:"location,omitempty"`
	UATDate       Date      `json:"uatDate"`
	InvoiceValue  float64   `json:"invoiceValue"`
	Quantity      int       `json:"quantity"`
	ROIRates      []float64 `json:"roiRates,omitempty"`
	AMCYears      int       `json:"amcYears,omitempty"`
	AMCPercentage *float64  `json:"amcPercentage,omitempty"`
	GSTRate       *float64  `json:"gstRate,omitempty"`
}

func (p Product) Identity() (string, ScheduleKind) {
	return p.ID, KindAMC
}

type WarrantyProduct struct {
	ID                 string   `json:"id"`
	ItemName           string   `json:"itemName"`
	Location           string   `json:"location,omitempty"`
	Cost               float64  `json:"cost"`
	Quantity           int      `json:"quantity"`
	UATDate            Date     `json:"uatDate"`
	WarrantyStart      Date     `json:"warrantyStart"`
	WarrantyYears      int      `json:"warrantyYears,omitempty"`
	WarrantyPercentage *float64 `json:"warrantyPercentage,omitempty"`
	GSTRate            *float64 `json:"gstRate,omitempty"`
}

// StartDate is the warranty start, falling back to the UAT date.
func (p WarrantyProduct) StartDate() Date {
	if p.WarrantyStart.IsZero() && !p.WarrantyStart.Invalid() {
		return p.UATDate
	}
	return p.WarrantyStart
}

func (p WarrantyProduct) Identity() (string, ScheduleKind) {
	return p.ID, KindWarranty
}
