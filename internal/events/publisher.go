package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/nurpe/amc-schedule/internal/batch"
	"github.com/nurpe/amc-schedule/internal/config"
	"github.com/nurpe/amc-schedule/internal/model"
)

// Publisher forwards batch lifecycle events to other systems.
type Publisher interface {
	Publish(ctx context.Context, kind model.ScheduleKind, ev batch.Event) error
	Close() error
}

// Message is the wire form of a batch event.
type Message struct {
	Type        batch.EventType     `json:"type"`
	Kind        model.ScheduleKind  `json:"kind"`
	BatchID     string              `json:"batchId"`
	ChunkIndex  int                 `json:"chunkIndex"`
	TotalChunks int                 `json:"totalChunks"`
	Processed   int                 `json:"processed"`
	Total       int                 `json:"total"`
	ElapsedMS   int64               `json:"elapsedMs"`
	Summary     *model.BatchSummary `json:"summary,omitempty"`
	Error       string              `json:"error,omitempty"`
	SentAt      time.Time           `json:"sentAt"`
}

func NewMessage(kind model.ScheduleKind, ev batch.Event, now time.Time) Message {
	msg := Message{
		Type:        ev.Type,
		Kind:        kind,
		BatchID:     ev.BatchID,
		ChunkIndex:  ev.ChunkIndex,
		TotalChunks: ev.TotalChunks,
		Processed:   ev.Processed,
		Total:       ev.Total,
		ElapsedMS:   ev.Elapsed.Milliseconds(),
		Summary:     ev.Summary,
		SentAt:      now.UTC(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// Writer is the part of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer Writer
	log    zerolog.Logger
	now    func() time.Time
}

func NewKafkaPublisher(cfg config.KafkaConfig, log zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(writer, log)
}

func NewKafkaPublisherWithWriter(writer Writer, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		log:    log.With().Str("component", "events").Logger(),
		now:    time.Now,
	}
}

// Publish writes the event keyed by batch id so a batch stays on one partition.
// Per product results are not sent; consumers fetch them by batch id.
func (p *KafkaPublisher) Publish(ctx context.Context, kind model.ScheduleKind, ev batch.Event) error {
	payload, err := json.Marshal(NewMessage(kind, ev, p.now()))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.BatchID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		p.log.Warn().Err(err).Str("batch_id", ev.BatchID).Str("type", string(ev.Type)).Msg("publish failed")
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, model.ScheduleKind, batch.Event) error { return nil }
func (Nop) Close() error                                                   { return nil }

func New(cfg config.KafkaConfig, log zerolog.Logger) Publisher {
	if len(cfg.Brokers) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(cfg, log)
}
