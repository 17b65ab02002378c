package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/amc-schedule/internal/batch"
	"github.com/nurpe/amc-schedule/internal/config"
	"github.com/nurpe/amc-schedule/internal/model"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, zerolog.Nop())
	p.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	summary := model.BatchSummary{Processed: 2, Successful: 1, Errors: 1, TotalValue: 2360}
	err := p.Publish(context.Background(), model.KindAMC, batch.Event{
		Type:      batch.EventComplete,
		BatchID:   "b-1",
		Processed: 2,
		Total:     2,
		Elapsed:   1500 * time.Millisecond,
		Summary:   &summary,
		Results:   []model.ProductResult{{ID: "p1"}},
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "b-1", string(msg.Key))
	assert.Equal(t, "complete", string(msg.Headers[0].Value))

	var decoded Message
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, batch.EventComplete, decoded.Type)
	assert.Equal(t, model.KindAMC, decoded.Kind)
	assert.Equal(t, int64(1500), decoded.ElapsedMS)
	assert.Equal(t, summary, *decoded.Summary)
	assert.NotContains(t, string(msg.Value), "results")
}

func TestKafkaPublisher_ErrorEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, zerolog.Nop())

	err := p.Publish(context.Background(), model.KindWarranty, batch.Event{
		Type:       batch.EventError,
		BatchID:    "b-2",
		ChunkIndex: 3,
		Err:        context.Canceled,
	})
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, 3, decoded.ChunkIndex)
	assert.Equal(t, "context canceled", decoded.Error)
}

func TestKafkaPublisher_WriteFailure(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, zerolog.Nop())

	err := p.Publish(context.Background(), model.KindAMC, batch.Event{Type: batch.EventProgress, BatchID: "b"})
	assert.ErrorContains(t, err, "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNew_WithoutBrokersIsNop(t *testing.T) {
	p := New(config.KafkaConfig{}, zerolog.Nop())
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), model.KindAMC, batch.Event{}))
}
