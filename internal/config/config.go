package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        string `envconfig:"PORT" default:"3000"`
	GRPCPort    string `envconfig:"GRPC_PORT" default:"50051"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DB         DB
	NATS       NATS
	Notify     Notify
	ClickHouse ClickHouse
	Upstream   Upstream
	Local      Local
	Poll       Poll
}

type DB struct {
	Driver      string `envconfig:"DB_DRIVER" default:"memory"`
	SQLiteFile  string `envconfig:"SQLITE_FILE" default:"dev.sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

type NATS struct {
	URL     string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	Subject string `envconfig:"NATS_SUBJECT" default:"fantasy.changes"`
	Stream  string `envconfig:"NATS_STREAM" default:"FANTASY_CHANGES"`
}

// Notify selects the change-notification transport: local, nats, embedded or postgres.
type Notify struct {
	Driver string `envconfig:"NOTIFY_DRIVER"`
}

type ClickHouse struct {
	Addr     string `envconfig:"CLICKHOUSE_ADDR"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"default"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
}

type Upstream struct {
	BaseURL string        `envconfig:"VLR_BASE_URL" default:"https://vlrggapi.vercel.app"`
	Timeout time.Duration `envconfig:"VLR_TIMEOUT" default:"10s"`
	Workers int           `envconfig:"VLR_WORKERS" default:"4"`
}

type Local struct {
	KVFile string `envconfig:"LOCAL_KV_FILE"`
}

type Poll struct {
	DraftInterval  time.Duration `envconfig:"POLL_DRAFT_INTERVAL" default:"3s"`
	LeagueInterval time.Duration `envconfig:"POLL_LEAGUE_INTERVAL" default:"4s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return New()
}

func New() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.DB.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (valid: memory, sqlite, postgres)", c.DB.Driver)
	}

	switch c.NotifyDriver() {
	case "local", "nats", "embedded", "postgres":
	default:
		return fmt.Errorf("unknown NOTIFY_DRIVER %q", c.Notify.Driver)
	}
	if c.NotifyDriver() == "postgres" && c.DB.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for postgres notifications")
	}
	if c.Upstream.Workers < 1 {
		c.Upstream.Workers = 1
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// NotifyDriver resolves the change-notification transport. Without an explicit
// choice, development runs an embedded NATS server and production dials NATS_URL.
func (c *Config) NotifyDriver() string {
	if c.Notify.Driver != "" {
		return c.Notify.Driver
	}
	if c.IsDevelopment() {
		return "embedded"
	}
	return "nats"
}
