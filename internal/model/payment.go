package model

import "time"

// PaymentStatus tracks whether one quarter of a schedule has been paid.
type PaymentStatus struct {
	QuarterKey string    `json:"quarterKey"`
	Paid       bool      `json:"paid"`
	Date       string    `json:"date,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PaymentStatuses maps quarter keys such as JFM-2024 to their status.
type PaymentStatuses map[string]PaymentStatus

func (p PaymentStatuses) IsPaid(quarterKey string) bool {
	return p[quarterKey].Paid
}
