package redis

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/langowen/currency/internal/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Storage struct {
	rdb     redis.UniversalClient
	channel string

	mu  sync.Mutex
	sub *redis.PubSub
}

func NewStorage(client redis.UniversalClient, channel string) *Storage {
	return &Storage{
		rdb:     client,
		channel: channel,
	}
}

func InitStorage(ctx context.Context, options *redis.Options, channel string) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	storage := NewStorage(redisClient, channel)

	return storage, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.redis.Get"

	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entities.ErrNotFound
		}
		return nil, errors.Wrap(err, op)
	}

	return b, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	const op = "storage.redis.Set"

	if err := s.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

// PublishUpd announces a fresh snapshot to other instances.
func (s *Storage) PublishUpd(ctx context.Context, payload string) error {
	const op = "storage.redis.PublishUpd"

	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

// Subscribe opens the update subscription once and keeps it for the life
// of the storage, so announcements between two ListenUdp calls are queued.
func (s *Storage) Subscribe(ctx context.Context) error {
	const op = "storage.redis.Subscribe"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil {
		return nil
	}

	sub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Wrap(listenErr(ctx, err), op)
	}

	s.sub = sub

	return nil
}

// ListenUdp blocks until the next update announcement arrives.
func (s *Storage) ListenUdp(ctx context.Context) (string, error) {
	const op = "storage.redis.ListenUdp"

	if err := s.Subscribe(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		return "", errors.Wrap(listenErr(ctx, err), op)
	}

	slog.Debug("Received message", "op", op, "channel", msg.Channel)

	return msg.Payload, nil
}

func listenErr(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return entities.ErrRedisTimeout
		}
		return entities.ErrRedisCanceled
	}
	if ctx.Err() != nil {
		return entities.ErrRedisCanceled
	}

	return err
}

func (s *Storage) Close() error {
	s.mu.Lock()
	if s.sub != nil {
		_ = s.sub.Close()
		s.sub = nil
	}
	s.mu.Unlock()

	return s.rdb.Close()
}
