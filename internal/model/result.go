package model

// QuarterContribution is the share of a quarter billed to one contract year.
type QuarterContribution struct {
	ContractYear      int     `json:"contractYear"`
	ROIRate           float64 `json:"roiRate,omitempty"`
	FullQuarterAmount float64 `json:"fullQuarterAmount"`
	ProratedAmount    float64 `json:"proratedAmount"`
	ActualAmount      float64 `json:"actualAmount"`
	Classification    string  `json:"classification"`
	OverlapDays       int     `json:"overlapDays"`
	TotalDays         int     `json:"totalDays"`
	OverlapStart      string  `json:"overlapStart"`
	OverlapEnd        string  `json:"overlapEnd"`
}

type QuarterEntry struct {
	ID           string                `json:"id"`
	QuarterKey   string                `json:"quarterKey"`
	Quarter      string                `json:"quarter"`
	Year         int                   `json:"year"`
	StartDate    string                `json:"startDate"`
	EndDate      string                `json:"endDate"`
	BaseAmount   float64               `json:"baseAmount"`
	GSTAmount    float64               `json:"gstAmount"`
	TotalAmount  float64               `json:"totalAmount"`
	SplitDetails []QuarterContribution `json:"splitDetails"`
}

// ProductResult is the schedule of one product. A failed product carries an
// Error and no quarters.
type ProductResult struct {
	Kind                  ScheduleKind   `json:"kind"`
	ID                    string         `json:"id"`
	ProductName           string         `json:"productName"`
	Location              string         `json:"location,omitempty"`
	UATDate               string         `json:"uatDate,omitempty"`
	AMCStartDate          string         `json:"amcStartDate,omitempty"`
	WarrantyStartDate     string         `json:"warrantyStartDate,omitempty"`
	WarrantyEndDate       string         `json:"warrantyEndDate,omitempty"`
	InvoiceValue          float64        `json:"invoiceValue"`
	Quantity              int            `json:"quantity"`
	Quarters              []QuarterEntry `json:"quarters"`
	TotalQuarters         int            `json:"totalQuarters"`
	TotalAMCValue         float64        `json:"totalAmcValue,omitempty"`
	TotalWarrantyValue    float64        `json:"totalWarrantyValue,omitempty"`
	TotalAmountWithoutGST float64        `json:"totalAmountWithoutGST"`
	TotalAmountWithGST    float64        `json:"totalAmountWithGST"`
	Warnings              []string       `json:"warnings,omitempty"`
	Error                 string         `json:"error,omitempty"`
}

func (r ProductResult) Failed() bool {
	return r.Error != ""
}

// BatchSummary counts the outcome of a batch. TotalValue adds up the GST
// inclusive totals of the successful products.
type BatchSummary struct {
	Processed  int     `json:"processed"`
	Successful int     `json:"successful"`
	Errors     int     `json:"errors"`
	TotalValue float64 `json:"totalValue"`
	ElapsedMS  int64   `json:"elapsedMs"`
}

func (s *BatchSummary) Add(r ProductResult) {
	s.Processed++
	if r.Failed() {
		s.Errors++
		return
	}
	s.Successful++
	s.TotalValue += r.TotalAmountWithGST
}

func Summarize(results []ProductResult) BatchSummary {
	var s BatchSummary
	for _, r := range results {
		s.Add(r)
	}
	return s
}
