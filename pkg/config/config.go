package config

import (
	"time"
)

type DB struct {
	Url        string `envconfig:"URL" default:"sqlite://householdledger.db"`
	Migrations string `envconfig:"MIGRATIONS" default:"file://internal/migrations"`
}

// Store selects the Ledger Store backend.
type Store struct {
	Driver string `envconfig:"DRIVER" default:"gorm"` // gorm | file
	File   string `envconfig:"FILE" default:"householdledger.json"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

// Auth selects how sessions are established: "jwt" bearer tokens for the
// HTTP server, "basic" per-call credentials for the CLI.
type Auth struct {
	Strategy string `envconfig:"STRATEGY" default:"jwt"`
	Jwt      *Jwt   `envconfig:"JWT"`
}

type Redis struct {
	URL       string `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix string `envconfig:"KEY_PREFIX" default:"householdledger:"`
}

type Kafka struct {
	Brokers []string `envconfig:"BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"GROUP_ID" default:"householdledger"`
}

type EventBus struct {
	Driver string `envconfig:"DRIVER" default:"memory"` // memory | redis | kafka
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[ledger]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// Ledger holds domain tunables.
type Ledger struct {
	ActivityLimit int `envconfig:"ACTIVITY_LIMIT" default:"10"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Store     *Store     `envconfig:"STORE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	Kafka     *Kafka     `envconfig:"KAFKA"`
	EventBus  *EventBus  `envconfig:"EVENTBUS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
}
