package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" default:"redis://localhost:6379/0"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true" default:"salesops:conv:"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// RedisStore persists histories in a regular Redis server.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), cfg.KeyPrefix, cfg.TTL), nil
}

func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (History, error) {
	key, err := historyKey(s.keyPrefix, conversationID)
	if err != nil {
		return History{}, err
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return History{}, ErrHistoryNotFound
	}
	if err != nil {
		return History{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeHistory(raw)
}

func (s *RedisStore) Save(ctx context.Context, conversationID string, h History) error {
	key, err := historyKey(s.keyPrefix, conversationID)
	if err != nil {
		return err
	}
	payload, err := encodeHistory(h)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	key, err := historyKey(s.keyPrefix, conversationID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
