// Command kafka_smoketest round-trips a ledger event through a local Kafka
// cluster using the Kafka event bus.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	infraeventbus "github.com/amirasaad/householdledger/infra/eventbus"
	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// RunSmokeTest creates the ledger topics, emits a TransactionPosted event and
// waits for a registered handler to receive it.
func RunSmokeTest() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	brokers := strings.TrimSpace(os.Getenv("BROKERS"))
	if brokers == "" {
		brokers = "localhost:9093,localhost:9092"
	}
	groupID := strings.TrimSpace(os.Getenv("GROUP_ID"))
	if groupID == "" {
		groupID = "householdledger-smoketest"
	}
	brokerList := strings.Split(brokers, ",")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bus, err := infraeventbus.NewWithKafka(brokerList, groupID, "householdledger", logger)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	// Create topics if they don't exist
	{
		dialer := &kafka.Dialer{Timeout: 5 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", brokerList[0])
		if err != nil {
			logger.Error("dial failed", "error", err)
			return err
		}
		defer func() { _ = conn.Close() }()
		for eventType := range events.EventTypes {
			t := bus.TopicFor(eventType)
			err = conn.CreateTopics(kafka.TopicConfig{
				Topic:             t,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
			if err != nil && !strings.Contains(strings.ToLower(err.Error()), "already exists") {
				logger.Error("create topic failed", "topic", t, "error", err)
				return err
			}
			logger.Info("topic ready", "topic", t)
		}
	}

	want := events.TransactionPosted{
		Meta:            events.NewMeta(uuid.New(), "smoketest"),
		TransactionID:   uuid.New(),
		TransactionType: "income",
		Amount:          decimal.RequireFromString("150.50"),
		Balance:         decimal.RequireFromString("150.50"),
	}

	received := make(chan struct{})
	bus.Register(events.TransactionPostedType, func(_ context.Context, evt events.Event) error {
		posted, ok := evt.(*events.TransactionPosted)
		if ok && posted.ID == want.ID {
			logger.Info("consumed", "event_id", posted.ID, "amount", posted.Amount)
			close(received)
		}
		return nil
	})

	if err := bus.Emit(ctx, want); err != nil {
		logger.Error("emit failed", "error", err)
		return err
	}
	logger.Info("produced", "event_id", want.ID, "topic", bus.TopicFor(want.Type()))

	select {
	case <-received:
	case <-ctx.Done():
		logger.Error("event not consumed", "error", ctx.Err())
		return ctx.Err()
	}

	logger.Info("kafka smoke test passed")
	return nil
}

// main runs the smoke test and exits non-zero on failure.
func main() {
	if err := RunSmokeTest(); err != nil {
		os.Exit(1)
	}
}
