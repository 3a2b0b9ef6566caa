package main

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/householdledger/infra/initializer"
	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/webapi"
	log "github.com/charmbracelet/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	// Initialize all dependencies
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ledger := app.New(deps, cfg)
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	fiberApp := webapi.SetupApp(ledger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
		"store", cfg.Store.Driver,
		"eventbus", cfg.EventBus.Driver,
	)

	return fiberApp.Listen(addr)
}
