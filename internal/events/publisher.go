// Package events forwards store changes to a Kafka topic.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the wire format of a change.
type Event struct {
	Kind store.ChangeKind  `json:"kind"`
	Item model.GroceryItem `json:"item"`
	At   time.Time         `json:"at"`
}

type Publisher struct {
	w      Writer
	logger *zap.Logger
	queue  chan Event
	now    func() time.Time
}

// NewWriter builds a kafka-go writer for brokers/topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(w Writer, buffer int, logger *zap.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		w:      w,
		logger: logger,
		queue:  make(chan Event, buffer),
		now:    time.Now,
	}
}

// Enqueue never blocks: when the buffer is full the event is dropped.
func (p *Publisher) Enqueue(c store.Change) {
	ev := Event{Kind: c.Kind, Item: c.Item, At: p.now().UTC()}
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("change feed buffer full, dropping event",
			zap.String("kind", string(c.Kind)),
			zap.String("item_id", c.Item.ID),
		)
	}
}

// Attach subscribes the publisher to s.
func (p *Publisher) Attach(s store.Store) (cancel func()) {
	return s.Watch(p.Enqueue)
}

// Run writes queued events until ctx ends, then flushes what is already queued
// and closes the writer.
func (p *Publisher) Run(ctx context.Context) error {
	defer func() {
		if err := p.w.Close(); err != nil {
			p.logger.Warn("kafka writer close error", zap.Error(err))
		}
	}()
	for {
		select {
		case ev := <-p.queue:
			p.write(ctx, ev)
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-p.queue:
			p.write(ctx, ev)
		default:
			return
		}
	}
}

func (p *Publisher) write(ctx context.Context, ev Event) {
	msg, err := Encode(ev)
	if err != nil {
		p.logger.Error("encode change event", zap.Error(err))
		return
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish change event",
			zap.Error(err),
			zap.String("item_id", ev.Item.ID),
		)
		return
	}
	p.logger.Debug("published change event",
		zap.String("kind", string(ev.Kind)),
		zap.String("item_id", ev.Item.ID),
	)
}

// Encode keys the message by item id so one item's events stay ordered.
func Encode(ev Event) (kafka.Message, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("json marshal: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.Item.ID),
		Value: b,
		Time:  ev.At,
	}, nil
}
