package model

import "time"

// BatchRecord is a computed batch stored under the fingerprint of its input.
type BatchRecord struct {
	Fingerprint string          `json:"fingerprint"`
	Kind        ScheduleKind    `json:"kind"`
	BatchID     string          `json:"batchId"`
	Results     []ProductResult `json:"results"`
	Summary     BatchSummary    `json:"summary"`
	CreatedAt   time.Time       `json:"createdAt"`
}
