// Package events publishes record-change notifications after the record
// store has confirmed a mutation.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action names what happened to a record.
type Action string

const (
	Created       Action = "created"
	Updated       Action = "updated"
	Deleted       Action = "deleted"
	StatusChanged Action = "status_changed"
	Overdue       Action = "overdue"
)

// Event is one record change.
type Event struct {
	ID       uuid.UUID         `json:"id"`
	Entity   string            `json:"entity"`
	Action   Action            `json:"action"`
	RecordID int64             `json:"record_id"`
	At       time.Time         `json:"at"`
	Detail   map[string]string `json:"detail,omitempty"`
}

// New stamps a fresh event.
func New(entity string, action Action, recordID int64, detail map[string]string) Event {
	return Event{
		ID:       uuid.New(),
		Entity:   entity,
		Action:   action,
		RecordID: recordID,
		At:       time.Now().UTC(),
		Detail:   detail,
	}
}

// Key is the partitioning key: all events of one record stay ordered.
func (e Event) Key() string {
	return e.Entity + "/" + strconv.FormatInt(e.RecordID, 10)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Emit publishes ev and logs, rather than returns, a delivery failure. The
// mutation that produced the event has already succeeded.
func Emit(ctx context.Context, pub Publisher, logger zerolog.Logger, ev Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn().Err(err).
			Str("entity", ev.Entity).
			Str("action", string(ev.Action)).
			Int64("record_id", ev.RecordID).
			Msg("event publish failed")
	}
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.logger.Info().
		Str("event_id", ev.ID.String()).
		Str("entity", ev.Entity).
		Str("action", string(ev.Action)).
		Int64("record_id", ev.RecordID).
		Interface("detail", ev.Detail).
		Msg("record event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// KafkaPublisher sends events as JSON to one topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "hms-server"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Key()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("action"), Value: []byte(ev.Action)},
		},
	})
	if err != nil {
		return fmt.Errorf("send event %s: %w", ev.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Actions returns the published actions in order, as "entity.action".
func (r *Recorder) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Entity+"."+string(ev.Action))
	}
	return out
}

type observed struct {
	Publisher
	fn func(Event)
}

// Observe calls fn for every event handed to next, whether or not delivery
// succeeds.
func Observe(next Publisher, fn func(Event)) Publisher {
	return &observed{Publisher: next, fn: fn}
}

func (o *observed) Publish(ctx context.Context, ev Event) error {
	o.fn(ev)
	return o.Publisher.Publish(ctx, ev)
}

type fanout []Publisher

// Fanout publishes every event to each of pubs in order. Nil entries are
// skipped. Errors from individual publishers are joined.
func Fanout(pubs ...Publisher) Publisher {
	var out fanout
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
