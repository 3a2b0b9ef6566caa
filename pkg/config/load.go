package config

import (
	"errors"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the first env file found among envFilePath (searching parent
// directories), falls back to ./.env and then processes the environment.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	// If no specific paths provided, try default .env
	if len(envFilePath) == 0 {
		logger.Debug("No environment file specified, trying default .env")
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	// Try each provided path until we find a valid one
	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := FindEnvTest(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		return loadFromEnv()
	}

	logger.Info("No valid environment files found, using default .env")
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

// ErrMissingJWTSecret is returned when the jwt strategy is selected without
// AUTH_JWT_SECRET.
var ErrMissingJWTSecret = errors.New("AUTH_JWT_SECRET is required for the jwt auth strategy")

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.Auth.Strategy == "jwt" && cfg.Auth.Jwt.Secret == "" {
		return nil, ErrMissingJWTSecret
	}

	slog.Default().Info("App config loaded",
		"env", cfg.Env,
		"store_driver", cfg.Store.Driver,
		"db", maskValue(cfg.DB.Url),
		"eventbus_driver", cfg.EventBus.Driver,
		"auth_strategy", cfg.Auth.Strategy,
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"activity_limit", cfg.Ledger.ActivityLimit,
	)
	return &cfg, nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
