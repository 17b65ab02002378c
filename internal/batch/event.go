package batch

import (
	"time"

	"github.com/nurpe/amc-schedule/internal/model"
)

type EventType string

const (
	EventStarted       EventType = "started"
	EventProgress      EventType = "progress"
	EventChunkComplete EventType = "chunk_complete"
	EventComplete      EventType = "complete"
	EventError         EventType = "error"
)

// Event is a notification about a running batch. Which fields are set
// depends on Type: Results only on complete, Err only on error.
type Event struct {
	Type        EventType
	BatchID     string
	ChunkIndex  int
	TotalChunks int
	Processed   int
	Total       int
	Elapsed     time.Duration
	Summary     *model.BatchSummary
	Results     []model.ProductResult
	Err         error
}

func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
