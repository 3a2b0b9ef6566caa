package app_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	infraeventbus "github.com/amirasaad/householdledger/infra/eventbus"
	infrarepo "github.com/amirasaad/householdledger/infra/repository"
	"github.com/amirasaad/householdledger/internal/database"
	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/pkg/domain/events"
	"github.com/amirasaad/householdledger/pkg/domain/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(strategy string) *config.App {
	return &config.App{
		Auth: &config.Auth{
			Strategy: strategy,
			Jwt:      &config.Jwt{Secret: "secret", Expiry: time.Hour},
		},
		Ledger: &config.Ledger{ActivityLimit: 10},
	}
}

func TestNew_WiresServices(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	uow := infrarepo.NewUoW(database.NewTestDB(t))
	bus := infraeventbus.NewWithMemory(logger)

	a := app.New(&app.Deps{Uow: uow, EventBus: bus, Logger: logger}, testConfig("jwt"))
	require.NotNil(t, a.AuthService)
	require.NotNil(t, a.AccountService)
	require.NotNil(t, a.TransactionService)

	users, err := uow.UserRepository()
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, user.NewFromData("alice", "hash", time.Now())))

	acc, err := a.AccountService.CreateAccount(ctx, "alice", "Family")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ledger event")
	assert.Contains(t, buf.String(), acc.ID.String())
	assert.NoError(t, a.Close())
}

func TestNew_BasicStrategyIssuesNoToken(t *testing.T) {
	ctx := context.Background()
	uow := infrarepo.NewUoW(database.NewTestDB(t))
	a := app.New(&app.Deps{Uow: uow, Logger: slog.Default()}, testConfig("basic"))

	_, err := a.AuthService.Register(ctx, "alice", "password1")
	require.NoError(t, err)
	_, token, err := a.AuthService.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestHandleAudit(t *testing.T) {
	var buf bytes.Buffer
	h := app.HandleAudit(slog.New(slog.NewTextHandler(&buf, nil)))
	id := uuid.New()

	err := h(context.Background(), &events.TransactionPosted{
		Meta:    events.NewMeta(id, "bob"),
		Amount:  decimal.NewFromInt(30),
		Balance: decimal.NewFromInt(70),
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "event_type=TransactionPosted")
	assert.Contains(t, out, "actor=bob")
	assert.Contains(t, out, "balance=70")
	assert.Contains(t, out, id.String())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	a := app.New(&app.Deps{
		Logger: slog.Default(),
		Closers: []io.Closer{
			closerFunc(func() error { order = append(order, 1); return nil }),
			closerFunc(func() error { order = append(order, 2); return nil }),
		},
	}, testConfig("basic"))
	require.NoError(t, a.Close())
	assert.Equal(t, []int{2, 1}, order)
}
