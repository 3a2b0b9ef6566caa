package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// KafkaEventBus implements eventbus.Bus with one Kafka topic per event type.
// Messages are keyed by account id so events of one account stay ordered.
type KafkaEventBus struct {
	writer  *kafka.Writer
	brokers []string
	groupID string
	prefix  string
	logger  *slog.Logger

	mu       sync.Mutex
	readers  []*kafka.Reader
	handlers handlerTable

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a Kafka-backed event bus. Consumer groups are
// "<groupID>.<eventtype>" and topics are "<prefix>.events.<eventtype>".
func NewWithKafka(brokers []string, groupID, prefix string, logger *slog.Logger) (*KafkaEventBus, error) {
	var parsed []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			parsed = append(parsed, b)
		}
	}
	if len(parsed) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if groupID == "" {
		groupID = "householdledger"
	}
	if prefix == "" {
		prefix = "householdledger"
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaEventBus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(parsed...),
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			Balancer:               &kafka.Hash{},
		},
		brokers: parsed,
		groupID: groupID,
		prefix:  prefix,
		logger:  logger.With("bus", "kafka"),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// TopicFor returns the topic carrying eventType.
func (b *KafkaEventBus) TopicFor(eventType string) string {
	return nameFor(b.prefix, "events", eventType, ".")
}

// Emit writes the event to its topic.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	raw, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	msg := kafka.Message{
		Topic: b.TopicFor(event.Type()),
		Value: raw,
	}
	if m, ok := metaOf(event); ok {
		msg.Key = []byte(m.AccountID.String())
		msg.Time = m.OccurredAt
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("kafka event bus: emit failed: %w", err)
	}
	return nil
}

// GroupFor returns the consumer group reading eventType. It depends only on
// the event type, so a restarted process resumes from its committed offsets.
func (b *KafkaEventBus) GroupFor(eventType string) string {
	return b.groupID + "." + strings.ToLower(eventType)
}

// Register adds handler for eventType. The first handler of a type starts
// the reader for its topic; later ones share it.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.logger.Info("registering handler", "event_type", eventType, "topic", b.TopicFor(eventType))
	if !b.handlers.add(eventType, handler) {
		return
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.GroupFor(eventType),
		Topic:       b.TopicFor(eventType),
		StartOffset: kafka.FirstOffset,
	})
	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			msg, err := reader.ReadMessage(b.ctx)
			if err != nil {
				if b.ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				b.logger.Error("error reading message", "error", err, "event_type", eventType)
				continue
			}
			evt, err := decodeEvent(msg.Value)
			if err != nil {
				b.logger.Error("failed to decode event", "error", err, "offset", msg.Offset)
				continue
			}
			for _, h := range b.handlers.get(eventType) {
				if err := h(b.ctx, evt); err != nil {
					b.logger.Error("handler error", "error", err, "event_type", eventType)
				}
			}
		}
	}()
}

// Close stops all readers and flushes the writer.
func (b *KafkaEventBus) Close() error {
	b.cancel()
	b.mu.Lock()
	var errs []error
	for _, r := range b.readers {
		errs = append(errs, r.Close())
	}
	b.mu.Unlock()
	b.wg.Wait()
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

func metaOf(event events.Event) (events.Meta, bool) {
	type hasMeta interface{ EventMeta() events.Meta }
	if m, ok := event.(hasMeta); ok {
		return m.EventMeta(), true
	}
	return events.Meta{}, false
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
