package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "lmsportal:session:"

// RedisStore keeps the token of one browser session under a single redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func (s *RedisStore) Get(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get session: %w", err)
	}
	return token, token != "", nil
}

func (s *RedisStore) Set(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisProvider opens RedisStores that share one client.
type RedisProvider struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisProvider(opts RedisOptions) *RedisProvider {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisProviderWithClient(client, opts.KeyPrefix, opts.TTL)
}

func NewRedisProviderWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisProvider {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisProvider{client: client, prefix: prefix, ttl: ttl}
}

func (p *RedisProvider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (p *RedisProvider) Open(sessionID string) Store {
	return &RedisStore{client: p.client, key: p.prefix + sessionID, ttl: p.ttl}
}

func (p *RedisProvider) Close() error {
	return p.client.Close()
}
