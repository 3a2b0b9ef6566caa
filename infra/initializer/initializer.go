// Package initializer builds the application dependencies described by the
// configuration: logger, ledger store and event bus.
package initializer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/householdledger/infra"
	infra_eventbus "github.com/amirasaad/householdledger/infra/eventbus"
	"github.com/amirasaad/householdledger/infra/filestore"
	infra_repository "github.com/amirasaad/householdledger/infra/repository"
	"github.com/amirasaad/householdledger/pkg/app"
	"github.com/amirasaad/householdledger/pkg/config"
	"github.com/amirasaad/householdledger/pkg/eventbus"
	"github.com/amirasaad/householdledger/pkg/repository"
)

// Store drivers.
const (
	StoreGorm = "gorm"
	StoreFile = "file"
)

// Event bus drivers.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"
)

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	err error,
) {
	logger := setupLogger(cfg.Log)
	return initialize(cfg, logger)
}

func initialize(cfg *config.App, logger *slog.Logger) (deps *app.Deps, err error) {
	deps = &app.Deps{Logger: logger}
	defer func() {
		if err != nil {
			closeAll(deps.Closers, logger)
			deps = nil
		}
	}()

	uow, closer, err := initStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger store", "error", err)
		return deps, err
	}
	deps.Uow = uow
	deps.Closers = append(deps.Closers, closer)

	bus, err := initEventBus(cfg, logger)
	if err != nil {
		return deps, err
	}
	deps.EventBus = bus
	if c, ok := bus.(io.Closer); ok {
		deps.Closers = append(deps.Closers, c)
	}
	return deps, nil
}

// initStore opens the ledger store selected by STORE_DRIVER. The relational
// store is migrated before use.
func initStore(cfg *config.App, logger *slog.Logger) (repository.UnitOfWork, io.Closer, error) {
	switch cfg.Store.Driver {
	case StoreFile:
		s, err := filestore.Open(cfg.Store.File)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file ledger store", "path", s.Path())
		return s, s, nil
	case StoreGorm, "":
		db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := infra.Migrate(db, cfg.DB); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Using relational ledger store", "dialect", db.Dialector.Name())
		return infra_repository.NewUoW(db), sqlDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// initEventBus builds the bus selected by EVENTBUS_DRIVER. A broker that
// cannot be reached falls back to the in-process bus, events are
// notifications only.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	driver := BusMemory
	if cfg.EventBus != nil && cfg.EventBus.Driver != "" {
		driver = cfg.EventBus.Driver
	}

	switch driver {
	case BusMemory:
		return infra_eventbus.NewWithMemory(logger), nil
	case BusRedis:
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, fmt.Errorf("event bus driver %q requires REDIS_URL", driver)
		}
		bus, err := infra_eventbus.NewWithRedis(cfg.Redis.URL, cfg.Redis.KeyPrefix, logger)
		if err != nil {
			logger.Warn("Redis event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	case BusKafka:
		if cfg.Kafka == nil || len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("event bus driver %q requires KAFKA_BROKERS", driver)
		}
		bus, err := infra_eventbus.NewWithKafka(cfg.Kafka.Brokers, cfg.Kafka.GroupID, "householdledger", logger)
		if err != nil {
			logger.Warn("Kafka event bus unavailable, falling back to memory", "error", err)
			return infra_eventbus.NewWithMemory(logger), nil
		}
		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver %q", driver)
	}
}

func closeAll(closers []io.Closer, logger *slog.Logger) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn("Failed to release dependency", "error", err)
		}
	}
}
