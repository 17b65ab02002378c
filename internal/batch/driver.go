package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nurpe/amc-schedule/internal/model"
)

// CalculateFunc computes one product. Failures are reported inside the
// result, never as an error.
type CalculateFunc[P any] func(ctx context.Context, product P, settings model.Settings) model.ProductResult

// Identified products keep their ID and kind in the result that replaces a
// panicked calculation.
type Identified interface {
	Identity() (id string, kind model.ScheduleKind)
}

type Request[P any] struct {
	Products []P
	Settings model.Settings
}

// Driver runs a calculation over a list of products in chunks, on a bounded
// pool of workers.
type Driver[P any] struct {
	calc CalculateFunc[P]
	opts options
}

func NewDriver[P any](calc CalculateFunc[P], opts ...Option) *Driver[P] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver[P]{calc: calc, opts: o}
}

// Submit starts the batch in the background. A request without a product
// list is rejected as a whole.
func (d *Driver[P]) Submit(ctx context.Context, req Request[P]) (*Handle, error) {
	if req.Products == nil {
		return nil, fmt.Errorf("%w: products are required", ErrMalformedRequest)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(uuid.NewString(), d.opts.eventBuffer, cancel)
	go d.run(runCtx, h, req)
	return h, nil
}

// Run submits the batch and waits for it.
func (d *Driver[P]) Run(ctx context.Context, req Request[P]) (*Outcome, error) {
	h, err := d.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

type span struct {
	start, end int
}

func chunks(total, size int) []span {
	var out []span
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		out = append(out, span{start: start, end: end})
	}
	return out
}

type execution[P any] struct {
	d         *Driver[P]
	h         *Handle
	req       Request[P]
	results   []model.ProductResult
	processed atomic.Int64
	started   time.Time
	total     int
	chunks    []span
}

func (d *Driver[P]) run(ctx context.Context, h *Handle, req Request[P]) {
	defer h.cancel()

	r := &execution[P]{
		d:       d,
		h:       h,
		req:     req,
		results: make([]model.ProductResult, len(req.Products)),
		started: d.opts.now(),
		total:   len(req.Products),
		chunks:  chunks(len(req.Products), d.opts.chunkSize),
	}
	log := d.opts.log.With().Str("batch_id", h.ID).Logger()
	log.Info().Int("products", r.total).Int("chunks", len(r.chunks)).Msg("batch started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.workers)
	for i, c := range r.chunks {
		if gctx.Err() != nil {
			break
		}
		i, c := i, c // per-iteration copies; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			return r.chunk(gctx, i, c)
		})
	}
	err := g.Wait()
	if err == nil && ctx.Err() != nil {
		err = &ChunkError{ChunkIndex: -1, Err: ctx.Err()}
	}

	elapsed := d.opts.now().Sub(r.started)
	if err != nil {
		chunkIndex := -1
		var chunkErr *ChunkError
		if errors.As(err, &chunkErr) {
			chunkIndex = chunkErr.ChunkIndex
		}
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("batch aborted")
		d.opts.recorder.BatchDone("error", elapsed)
		h.finish(nil, err, Event{
			Type:        EventError,
			BatchID:     h.ID,
			ChunkIndex:  chunkIndex,
			TotalChunks: len(r.chunks),
			Processed:   int(r.processed.Load()),
			Total:       r.total,
			Elapsed:     elapsed,
			Err:         err,
		})
		return
	}

	summary := model.Summarize(r.results)
	summary.ElapsedMS = elapsed.Milliseconds()
	log.Info().
		Int("successful", summary.Successful).
		Int("errors", summary.Errors).
		Dur("elapsed", elapsed).
		Msg("batch completed")
	d.opts.recorder.BatchDone("complete", elapsed)

	outcome := &Outcome{BatchID: h.ID, Results: r.results, Summary: summary}
	h.finish(outcome, nil, Event{
		Type:        EventComplete,
		BatchID:     h.ID,
		TotalChunks: len(r.chunks),
		Processed:   r.total,
		Total:       r.total,
		Elapsed:     elapsed,
		Summary:     &summary,
		Results:     r.results,
	})
}

func (r *execution[P]) chunk(ctx context.Context, index int, c span) error {
	r.h.emit(Event{
		Type:        EventStarted,
		BatchID:     r.h.ID,
		ChunkIndex:  index,
		TotalChunks: len(r.chunks),
		Total:       r.total,
	})

	every := r.d.opts.progressEvery
	var summary model.BatchSummary
	for i := c.start; i < c.end; i++ {
		if err := ctx.Err(); err != nil {
			return &ChunkError{ChunkIndex: index, Err: err}
		}

		res := r.calculate(ctx, i)
		r.results[i] = res
		summary.Add(res)
		r.d.opts.recorder.ProductDone(res.Failed())
		processed := int(r.processed.Add(1))

		if done := i - c.start + 1; done%every == 0 || i == c.end-1 {
			r.h.emit(Event{
				Type:        EventProgress,
				BatchID:     r.h.ID,
				ChunkIndex:  index,
				TotalChunks: len(r.chunks),
				Processed:   processed,
				Total:       r.total,
				Elapsed:     r.d.opts.now().Sub(r.started),
			})
		}
	}

	summary.ElapsedMS = r.d.opts.now().Sub(r.started).Milliseconds()
	r.h.emit(Event{
		Type:        EventChunkComplete,
		BatchID:     r.h.ID,
		ChunkIndex:  index,
		TotalChunks: len(r.chunks),
		Processed:   int(r.processed.Load()),
		Total:       r.total,
		Summary:     &summary,
	})
	return nil
}

// calculate runs one product, turning a panic into a failed result.
func (r *execution[P]) calculate(ctx context.Context, i int) (res model.ProductResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.d.opts.log.Error().Interface("panic", rec).Int("index", i).Msg("product calculation panicked")
			res = model.ProductResult{
				ID:       "product-" + strconv.Itoa(i+1),
				Quarters: []model.QuarterEntry{},
				Error:    fmt.Sprintf("unexpected error: %v", rec),
			}
			if p, ok := any(r.req.Products[i]).(Identified); ok {
				id, kind := p.Identity()
				if id != "" {
					res.ID = id
				}
				res.Kind = kind
			}
		}
	}()
	return r.d.calc(ctx, r.req.Products[i], r.req.Settings)
}
