package batch

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers       = 4
	defaultChunkSize     = 1000
	defaultProgressEvery = 100
	defaultEventBuffer   = 64
)

// Recorder receives batch measurements.
type Recorder interface {
	ProductDone(failed bool)
	BatchDone(status string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ProductDone(bool)                  {}
func (nopRecorder) BatchDone(string, time.Duration) {}

type options struct {
	workers       int
	chunkSize     int
	progressEvery int
	eventBuffer   int
	log           zerolog.Logger
	recorder      Recorder
	now           func() time.Time
}

type Option func(*options)

func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithProgressEvery sets how many products a chunk computes between two
// progress events.
func WithProgressEvery(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.progressEvery = n
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func defaultOptions() options {
	return options{
		workers:       defaultWorkers,
		chunkSize:     defaultChunkSize,
		progressEvery: defaultProgressEvery,
		eventBuffer:   defaultEventBuffer,
		log:           zerolog.Nop(),
		recorder:      nopRecorder{},
		now:           time.Now,
	}
}
