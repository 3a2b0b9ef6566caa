// Package app builds the ledger services from their infrastructure
// dependencies and registers the event handlers.
package app

import (
	"io"
	"log/slog"

	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/amirasaad/householdledger/pkg/repository"
	"github.com/amirasaad/householdledger/pkg/service/account"
	"github.com/amirasaad/householdledger/pkg/service/auth"
	"github.com/amirasaad/householdledger/pkg/service/transaction"
)

// Deps contains the infrastructure the services are built on. Closers are
// released by Close in reverse order.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Logger   *slog.Logger
	Closers  []io.Closer
}

type App struct {
	Deps               *Deps
	Config             *config.App
	AuthService        *auth.Service
	AccountService     *account.Service
	TransactionService *transaction.Service
}

func New(deps *Deps, cfg *config.App) *App {
	app := &App{
		Deps:   deps,
		Config: cfg,
	}
	app.setupEventBus()

	authMap := map[string]func() *auth.Service{
		"jwt": func() *auth.Service {
			return auth.NewWithJWT(deps.Uow, cfg.Auth.Jwt, deps.Logger)
		},
	}
	if authFactory, ok := authMap[cfg.Auth.Strategy]; ok {
		app.AuthService = authFactory()
	} else {
		app.AuthService = auth.NewWithBasic(deps.Uow, deps.Logger)
	}
	app.AccountService = account.New(deps.Uow, deps.EventBus, deps.Logger)
	app.TransactionService = transaction.New(
		deps.Uow,
		deps.EventBus,
		deps.Logger,
		transaction.WithActivityLimit(cfg.Ledger.ActivityLimit),
	)
	return app
}

// Close releases the store and bus connections.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.Deps.Closers) - 1; i >= 0; i-- {
		if err := a.Deps.Closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
