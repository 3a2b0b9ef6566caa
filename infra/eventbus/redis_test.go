package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisBus starts a Redis container and returns a bus connected to it.
func setupRedisBus(tb testing.TB) *RedisEventBus {
	tb.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.0.5",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = container.Terminate(ctx) })

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(tb, err)
	host, err := container.Host(ctx)
	require.NoError(tb, err)

	bus, err := NewWithRedis("redis://"+host+":"+port.Port(), "test:", slog.Default())
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisEventBus_HandlerReceivesEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	bus := setupRedisBus(t)

	received := make(chan *events.AccountRenamed, 1)
	bus.Register(events.AccountRenamedType, func(_ context.Context, e events.Event) error {
		received <- e.(*events.AccountRenamed)
		return nil
	})

	sent := events.AccountRenamed{Meta: events.NewMeta(uuid.New(), "alice"), OldName: "A", NewName: "B"}
	require.NoError(t, bus.Emit(context.Background(), sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.AccountID, got.AccountID)
		assert.Equal(t, "B", got.NewName)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestRedisEventBus_HandlersShareOneGroup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	bus := setupRedisBus(t)

	first := make(chan events.Event, 1)
	second := make(chan events.Event, 1)
	bus.Register(events.MemberJoinedType, func(_ context.Context, e events.Event) error {
		first <- e
		return nil
	})
	bus.Register(events.MemberJoinedType, func(_ context.Context, e events.Event) error {
		second <- e
		return nil
	})

	groups, err := bus.client.XInfoGroups(context.Background(), bus.streamName(events.MemberJoinedType)).Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "test:group:memberjoined", groups[0].Name)

	sent := events.MemberJoined{Meta: events.NewMeta(uuid.New(), "bob")}
	require.NoError(t, bus.Emit(context.Background(), sent))
	for _, ch := range []chan events.Event{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, sent.AccountID, got.(*events.MemberJoined).AccountID)
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}
