package batch

import (
	"context"

	"github.com/nurpe/amc-schedule/internal/model"
)

type Outcome struct {
	BatchID string
	Results []model.ProductResult
	Summary model.BatchSummary
}

// Handle controls one submitted batch.
type Handle struct {
	ID string

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	outcome *Outcome
	err     error
}

func newHandle(id string, buffer int, cancel context.CancelFunc) *Handle {
	return &Handle{
		ID:     id,
		events: make(chan Event, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Events streams notifications. The channel is closed after the terminal
// complete or error event. Progress events are dropped when the consumer
// falls behind; the terminal event is always delivered.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Cancel abandons the batch. Results of unfinished chunks are discarded.
func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the batch finishes or ctx is done. Giving up on the wait
// cancels the batch.
func (h *Handle) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-h.done:
		return h.outcome, h.err
	case <-ctx.Done():
		h.cancel()
		<-h.done
		if h.err != nil {
			return nil, h.err
		}
		return h.outcome, nil
	}
}

// emit delivers a non-terminal event without blocking.
func (h *Handle) emit(ev Event) bool {
	select {
	case h.events <- ev:
		return true
	default:
		return false
	}
}

// finish records the outcome, delivers the terminal event and closes the
// stream. Old buffered events make room for the terminal one if needed.
func (h *Handle) finish(outcome *Outcome, err error, terminal Event) {
	h.outcome = outcome
	h.err = err
	defer close(h.done)

	for {
		select {
		case h.events <- terminal:
			close(h.events)
			return
		default:
		}
		select {
		case <-h.events:
		default:
		}
	}
}
