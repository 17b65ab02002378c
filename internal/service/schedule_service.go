package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/nurpe/amc-schedule/internal/batch"
	"github.com/nurpe/amc-schedule/internal/cache"
	"github.com/nurpe/amc-schedule/internal/config"
	"github.com/nurpe/amc-schedule/internal/events"
	"github.com/nurpe/amc-schedule/internal/model"
)

const publishTimeout = 5 * time.Second

type ResultStore interface {
	Get(ctx context.Context, fingerprint string) (*model.BatchRecord, error)
	Save(ctx context.Context, record *model.BatchRecord) error
	Delete(ctx context.Context, fingerprint string) error
}

type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*model.BatchRecord, error)
	Set(ctx context.Context, record *model.BatchRecord) error
	Delete(ctx context.Context, fingerprint string) error
}

type Metrics interface {
	CacheLookup(layer string, hit bool)
	Batch(kind string) batch.Recorder
	ExportCreated(format string)
}

type BatchOutcome struct {
	Record *model.BatchRecord
	Cached bool
}

// clone gives each caller its own record and result slice.
func (o *BatchOutcome) clone() *BatchOutcome {
	rec := *o.Record
	rec.Results = slices.Clone(rec.Results)
	return &BatchOutcome{Record: &rec, Cached: o.Cached}
}

type ScheduleService struct {
	calc      *Calculator
	results   ResultStore
	cache     ResultCache
	publisher events.Publisher
	metrics   Metrics
	settings  model.Settings
	batchCfg  config.BatchConfig
	log       zerolog.Logger
	now       func() time.Time
	flight    singleflight.Group
	runsMu    sync.Mutex
	runs      map[string]*sharedRun
}

type ScheduleDeps struct {
	Calculator *Calculator
	Results    ResultStore
	Cache      ResultCache
	Publisher  events.Publisher
	Metrics    Metrics
	Settings   model.Settings
	Batch      config.BatchConfig
	Log        zerolog.Logger
	Now        func() time.Time
}

func NewScheduleService(deps ScheduleDeps) *ScheduleService {
	s := &ScheduleService{
		calc:      deps.Calculator,
		results:   deps.Results,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		settings:  deps.Settings.Normalize(),
		batchCfg:  deps.Batch,
		log:       deps.Log.With().Str("component", "schedule_service").Logger(),
		now:       deps.Now,
		runs:      make(map[string]*sharedRun),
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// DefaultSettings is the configured settings snapshot requests start from.
func (s *ScheduleService) DefaultSettings() model.Settings {
	out := s.settings
	out.ROIRates = append([]float64(nil), s.settings.ROIRates...)
	return out
}

func (s *ScheduleService) CalculateAMC(ctx context.Context, p model.Product, settings model.Settings) model.ProductResult {
	if p.ID == "" {
		p.ID = fallbackID(0)
	}
	return s.calc.AMC(ctx, p, settings)
}

func (s *ScheduleService) CalculateWarranty(ctx context.Context, p model.WarrantyProduct, settings model.Settings) model.ProductResult {
	if p.ID == "" {
		p.ID = fallbackID(0)
	}
	return s.calc.Warranty(ctx, p, settings)
}

// RunAMCBatch computes every product, reusing a stored result for an
// identical dataset. onEvent may be nil.
func (s *ScheduleService) RunAMCBatch(ctx context.Context, products []model.Product, settings model.Settings, onEvent func(batch.Event)) (*BatchOutcome, error) {
	if products == nil {
		return nil, fmt.Errorf("%w: products are required", ErrMalformedBatch)
	}
	items := make([]model.Product, len(products))
	for i, p := range products {
		if p.ID == "" {
			p.ID = fallbackID(i)
		}
		items[i] = p
	}
	return runBatch(ctx, s, model.KindAMC, items, settings, s.calc.AMC, onEvent)
}

func (s *ScheduleService) RunWarrantyBatch(ctx context.Context, products []model.WarrantyProduct, settings model.Settings, onEvent func(batch.Event)) (*BatchOutcome, error) {
	if products == nil {
		return nil, fmt.Errorf("%w: products are required", ErrMalformedBatch)
	}
	items := make([]model.WarrantyProduct, len(products))
	for i, p := range products {
		if p.ID == "" {
			p.ID = fallbackID(i)
		}
		items[i] = p
	}
	return runBatch(ctx, s, model.KindWarranty, items, settings, s.calc.Warranty, onEvent)
}

// InvalidateCache drops a stored batch from every cache layer.
func (s *ScheduleService) InvalidateCache(ctx context.Context, fingerprint string) error {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, fingerprint); err != nil {
			s.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache delete failed")
		}
	}
	if s.results != nil {
		if err := s.results.Delete(ctx, fingerprint); err != nil {
			return err
		}
	}
	return nil
}

// StoredBatch returns a previously computed batch.
func (s *ScheduleService) StoredBatch(ctx context.Context, fingerprint string) (*model.BatchRecord, error) {
	if record := s.lookup(ctx, fingerprint); record != nil {
		return record, nil
	}
	return nil, ErrNotFound
}

func runBatch[P any](
	ctx context.Context,
	s *ScheduleService,
	kind model.ScheduleKind,
	products []P,
	settings model.Settings,
	calc batch.CalculateFunc[P],
	onEvent func(batch.Event),
) (*BatchOutcome, error) {
	settings = settings.Normalize()
	fingerprint, err := Fingerprint(kind, products, settings)
	if err != nil {
		return nil, err
	}

	// Events reach onEvent only while this caller is still waiting.
	var (
		mu       sync.Mutex
		detached bool
		terminal bool
	)
	notify := func(ev batch.Event) {
		mu.Lock()
		defer mu.Unlock()
		if detached {
			return
		}
		terminal = terminal || ev.Terminal()
		if onEvent != nil {
			onEvent(ev)
		}
	}
	detach := func() bool {
		mu.Lock()
		defer mu.Unlock()
		detached = true
		return terminal
	}

	run, leave := s.joinRun(ctx, fingerprint)
	defer leave()

	leader := false
	ch := s.flight.DoChan(fingerprint, func() (any, error) {
		leader = true
		if record := s.lookup(run.ctx, fingerprint); record != nil {
			return &BatchOutcome{Record: record, Cached: true}, nil
		}
		record, err := compute(run.ctx, s, kind, products, settings, calc, notify)
		if err != nil {
			return nil, err
		}
		record.Fingerprint = fingerprint
		s.store(run.ctx, record)
		return &BatchOutcome{Record: record}, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		detach()
		return nil, ctx.Err()
	}

	seen := detach()
	if res.Err != nil {
		if !seen && onEvent != nil {
			onEvent(batch.Event{Type: batch.EventError, ChunkIndex: -1, Err: res.Err})
		}
		return nil, res.Err
	}

	out := res.Val.(*BatchOutcome).clone()
	if !leader {
		out.Cached = true
	}
	if !seen && onEvent != nil {
		rec := out.Record
		summary := rec.Summary
		onEvent(batch.Event{
			Type:      batch.EventComplete,
			BatchID:   rec.BatchID,
			Processed: summary.Processed,
			Total:     summary.Processed,
			Summary:   &summary,
			Results:   rec.Results,
		})
	}
	return out, nil
}

// sharedRun is the context of one in-flight computation. It outlives any
// single caller and is cancelled when the last caller waiting on it leaves.
type sharedRun struct {
	ctx     context.Context
	cancel  context.CancelFunc
	callers int
}

func (s *ScheduleService) joinRun(ctx context.Context, fingerprint string) (*sharedRun, func()) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	run, ok := s.runs[fingerprint]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		run = &sharedRun{ctx: runCtx, cancel: cancel}
		s.runs[fingerprint] = run
	}
	run.callers++

	return run, func() {
		s.runsMu.Lock()
		defer s.runsMu.Unlock()
		run.callers--
		if run.callers > 0 {
			return
		}
		run.cancel()
		// A cancelled flight must not be joined by later callers.
		s.flight.Forget(fingerprint)
		if s.runs[fingerprint] == run {
			delete(s.runs, fingerprint)
		}
	}
}

func compute[P any](
	ctx context.Context,
	s *ScheduleService,
	kind model.ScheduleKind,
	products []P,
	settings model.Settings,
	calc batch.CalculateFunc[P],
	notify func(batch.Event),
) (*model.BatchRecord, error) {
	opts := []batch.Option{
		batch.WithWorkers(s.batchCfg.Workers),
		batch.WithChunkSize(s.batchCfg.ChunkSize),
		batch.WithProgressEvery(s.batchCfg.ProgressEvery),
		batch.WithLogger(s.log.With().Str("kind", string(kind)).Logger()),
		batch.WithClock(s.now),
	}
	if s.metrics != nil {
		opts = append(opts, batch.WithRecorder(s.metrics.Batch(string(kind))))
	}
	driver := batch.NewDriver(calc, opts...)

	h, err := driver.Submit(ctx, batch.Request[P]{Products: products, Settings: settings})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	for ev := range h.Events() {
		s.publish(ctx, kind, ev)
		notify(ev)
	}

	out, err := h.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return &model.BatchRecord{
		Kind:      kind,
		BatchID:   out.BatchID,
		Results:   out.Results,
		Summary:   out.Summary,
		CreatedAt: s.now().UTC(),
	}, nil
}

func (s *ScheduleService) publish(ctx context.Context, kind model.ScheduleKind, ev batch.Event) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, kind, ev); err != nil {
		s.log.Warn().Err(err).Str("batch_id", ev.BatchID).Msg("event not published")
	}
}

// lookup checks redis first, then the database. Lookup failures count as
// misses.
func (s *ScheduleService) lookup(ctx context.Context, fingerprint string) *model.BatchRecord {
	if s.cache != nil {
		record, err := s.cache.Get(ctx, fingerprint)
		switch {
		case err == nil:
			s.cacheLookup("redis", true)
			return record
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.Warn().Err(err).Msg("redis lookup failed")
		}
		s.cacheLookup("redis", false)
	}

	if s.results != nil {
		record, err := s.results.Get(ctx, fingerprint)
		switch {
		case err == nil:
			s.cacheLookup("db", true)
			if s.cache != nil {
				if err := s.cache.Set(ctx, record); err != nil {
					s.log.Warn().Err(err).Msg("redis backfill failed")
				}
			}
			return record
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.log.Warn().Err(err).Msg("stored result lookup failed")
		}
		s.cacheLookup("db", false)
	}
	return nil
}

func (s *ScheduleService) store(ctx context.Context, record *model.BatchRecord) {
	if s.results != nil {
		if err := s.results.Save(ctx, record); err != nil {
			s.log.Warn().Err(err).Str("fingerprint", record.Fingerprint).Msg("saving result failed")
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, record); err != nil {
			s.log.Warn().Err(err).Str("fingerprint", record.Fingerprint).Msg("caching result failed")
		}
	}
}

func (s *ScheduleService) cacheLookup(layer string, hit bool) {
	if s.metrics != nil {
		s.metrics.CacheLookup(layer, hit)
	}
}
