package config

import (
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPServer  HTTPServer
	Fetcher     Fetcher
	Persistence Persistence
	Storage     Storage
	Redis       Redis
	Currency    Currency
	Log         Log
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Fetcher struct {
	PrimaryURL       string        `env:"FETCHER_PRIMARY_URL" env-default:"https://api.frankfurter.app/latest?from=USD"`
	BackupURL        string        `env:"FETCHER_BACKUP_URL" env-default:"https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/usd.json"`
	Timeout          time.Duration `env:"FETCHER_TIMEOUT" env-default:"10s"`
	StaleAfter       time.Duration `env:"FETCHER_STALE_AFTER" env-default:"24h"`
	RecheckInterval  time.Duration `env:"FETCHER_RECHECK_INTERVAL" env-default:"0s"`
	RateLimit        float64       `env:"FETCHER_RATE_LIMIT" env-default:"1"`
	RateBurst        int           `env:"FETCHER_RATE_BURST" env-default:"4"`
	BreakerThreshold int           `env:"FETCHER_BREAKER_THRESHOLD" env-default:"3"`
	BreakerTimeout   time.Duration `env:"FETCHER_BREAKER_TIMEOUT" env-default:"1m"`
}

// Persistence selects the key-value backend behind the rate cache.
// Backend is one of file, redis, postgres, memory.
type Persistence struct {
	Backend      string `env:"PERSISTENCE_BACKEND" env-default:"file"`
	Dir          string `env:"PERSISTENCE_DIR" env-default:"data"`
	SnapshotKey  string `env:"PERSISTENCE_SNAPSHOT_KEY" env-default:"exchangeRates"`
	SelectionKey string `env:"PERSISTENCE_SELECTION_KEY" env-default:"currency"`
}

type Storage struct {
	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST" env-default:"localhost"`
	Port     int           `env:"BD_PORT" env-default:"5432"`
	User     string        `env:"BD_USER" env-default:"postgres"`
	Password string        `env:"BD_PASSWORD"`
	DBName   string        `env:"BD_DBNAME" env-default:"currency"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
	Schema   string        `env:"BD_SCHEMA" env-default:"public"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"currency_updated"`
}

type Currency struct {
	Default string `env:"CURRENCY_DEFAULT" env-default:"USD"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"debug"`
}

func NewConfig() *Config {
	cfg := &Config{}

	_ = godotenv.Load(".env")

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		log.Fatal("Error reading env: ", err)
	}

	return cfg
}

func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
