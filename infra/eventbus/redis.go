package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus implements eventbus.Bus on Redis Streams, one stream per
// event type. Each event type is read by one consumer group and every
// handler registered for the type sees each event once.
type RedisEventBus struct {
	client *redis.Client
	prefix string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handlers handlerTable
}

// NewWithRedis connects to url (e.g. "redis://localhost:6379/0"). Stream and
// group names are prefixed with prefix.
func NewWithRedis(url, prefix string, logger *slog.Logger) (*RedisEventBus, error) {
	if url == "" {
		return nil, fmt.Errorf("redis event bus: url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		prefix: prefix,
		logger: logger.With("bus", "redis"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (b *RedisEventBus) streamName(eventType string) string {
	return nameFor(b.prefix, "events", eventType, ":")
}

// groupName depends only on the event type, so a restarted process picks up
// pending entries of its previous run.
func (b *RedisEventBus) groupName(eventType string) string {
	return nameFor(b.prefix, "group", eventType, ":")
}

// Emit publishes an event to the stream of its type.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	raw, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}
	stream := b.streamName(event.Type())
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(raw)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type(), "stream", stream)
	return nil
}

// Register adds handler for eventType. The first handler of a type starts
// the consumer goroutine for its stream; later ones share it.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	stream := b.streamName(eventType)
	group := b.groupName(eventType)
	b.logger.Info("registering handler", "event_type", eventType, "group", group)
	if !b.handlers.add(eventType, handler) {
		return
	}
	host, _ := os.Hostname()
	consumer := fmt.Sprintf("%s-%d", host, os.Getpid())

	if err := b.client.XGroupCreateMkStream(b.ctx, stream, group, "$").Err(); err != nil &&
		!strings.HasPrefix(err.Error(), "BUSYGROUP") {
		b.logger.Error("failed to create consumer group", "error", err, "stream", stream)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
				Group:    group,
				Consumer: consumer,
				Streams:  []string{stream, ">"},
				Count:    10,
				Block:    5 * time.Second,
			}).Result()
			if b.ctx.Err() != nil {
				return
			}
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					b.logger.Error("error reading from stream", "error", err, "stream", stream)
					time.Sleep(time.Second)
				}
				continue
			}
			for _, s := range res {
				for _, msg := range s.Messages {
					b.dispatch(stream, group, msg, b.handlers.get(eventType))
				}
			}
		}
	}()
}

func (b *RedisEventBus) dispatch(stream, group string, msg redis.XMessage, handlers []eventbus.HandlerFunc) {
	defer func() {
		if err := b.client.XAck(b.ctx, stream, group, msg.ID).Err(); err != nil {
			b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
		}
	}()
	raw, ok := msg.Values["event"].(string)
	if !ok {
		return
	}
	evt, err := decodeEvent([]byte(raw))
	if err != nil {
		b.logger.Error("failed to decode event", "error", err, "msg_id", msg.ID)
		return
	}
	for _, h := range handlers {
		b.call(h, evt)
	}
}

func (b *RedisEventBus) call(handler eventbus.HandlerFunc, evt events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered", "panic", r, "event_type", evt.Type())
		}
	}()
	if err := handler(b.ctx, evt); err != nil {
		b.logger.Error("handler error", "error", err, "event_type", evt.Type())
	}
}

// Close stops all consumers and closes the client.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
