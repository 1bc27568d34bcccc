package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/langowen/currency/deploy/config"
	"github.com/langowen/currency/internal/currency/cache"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/file"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/memory"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/postgres"
	"github.com/langowen/currency/internal/currency_fetcher/adapter/storage/redis"
	"github.com/pkg/errors"
	redisPack "github.com/redis/go-redis/v9"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Backend is the opened persistence layer. Redis is set only for the redis
// backend, which also carries update notifications.
type Backend struct {
	Store cache.Store
	Redis *redis.Storage

	close func()
}

func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects the backend named in cfg.Persistence.Backend.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	const op = "storage.Open"

	switch strings.ToLower(cfg.Persistence.Backend) {
	case BackendFile, "":
		st, err := file.InitStorage(cfg.Persistence.Dir)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		return &Backend{Store: st}, nil

	case BackendMemory:
		return &Backend{Store: memory.NewStorage()}, nil

	case BackendRedis:
		options := &redisPack.Options{
			Addr:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		rd, err := redis.InitStorage(ctx, options, cfg.Redis.Channel)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		return &Backend{
			Store: rd,
			Redis: rd,
			close: func() {
				if err := rd.Close(); err != nil {
					slog.Error("Failed to close redis", "op", op, "error", err)
				}
			},
		}, nil

	case BackendPostgres:
		pg, err := postgres.InitStorage(ctx, DSN(cfg.Storage), cfg.Storage.Timeout)
		if err != nil {
			return nil, errors.Wrap(err, op)
		}
		return &Backend{Store: pg, close: pg.Close}, nil

	default:
		return nil, errors.Errorf("%s: unknown persistence backend %q", op, cfg.Persistence.Backend)
	}
}

func DSN(s config.Storage) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		s.Host,
		s.Port,
		s.User,
		s.Password,
		s.DBName,
		s.SSLMode,
		s.Schema,
	)
}
