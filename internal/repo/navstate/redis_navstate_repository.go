package navstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkrupp/authui/internal/domain"
	"github.com/mkrupp/authui/internal/infra/logging"
)

// RedisRepositoryConfig holds configuration for the Redis navigation state repository.
type RedisRepositoryConfig struct {
	// Addr is the host:port of the Redis server
	Addr string `env:"ADDR" default:"localhost:6379"`
	// Password authenticates against the Redis server
	Password string `env:"PASSWORD" default:""`
	// DB selects the Redis logical database
	DB int `env:"DB" default:"0"`
	// KeyPrefix namespaces all keys written by the repository
	KeyPrefix string `env:"KEY_PREFIX" default:"authui:navstate:"`
}

// RedisRepository implements Repository on Redis. Expiry is delegated to
// Redis key TTLs.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
	log    logging.Logger
}

var _ Repository = (*RedisRepository)(nil)

// RedisRepositoryFactory creates a factory function that returns a new RedisRepository.
func RedisRepositoryFactory(cfg RedisRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		//nolint:exhaustruct
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()

			return nil, fmt.Errorf("ping redis: %w", err)
		}

		return NewRedisRepository(rdb, cfg.KeyPrefix), nil
	}
}

// NewRedisRepository wraps an existing client. The repository owns the client
// and closes it on Close.
func NewRedisRepository(rdb redis.UniversalClient, keyPrefix string) *RedisRepository {
	return &RedisRepository{
		rdb:    rdb,
		prefix: keyPrefix,
		log:    logging.GetLogger("repo.navstate.redis_navstate_repository"),
	}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + token
}

// Put implements Repository.Put using SET NX with an expiry.
func (r *RedisRepository) Put(
	ctx context.Context,
	token string,
	payload domain.NavigationPayload,
	ttl time.Duration,
) error {
	if ttl <= 0 {
		// Already expired; nothing a later Take could return.
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, r.key(token), body, ttl).Result()
	if err != nil {
		return fmt.Errorf("set navigation state: %w", err)
	}

	if !ok {
		return fmt.Errorf("set navigation state: %w", domain.ErrNavigationStateExists)
	}

	return nil
}

// Take implements Repository.Take using GETDEL.
func (r *RedisRepository) Take(ctx context.Context, token string) (domain.NavigationPayload, error) {
	body, err := r.rdb.GetDel(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = errors.Join(domain.ErrNavigationStateNotFound, err)
		}

		return domain.NavigationPayload{}, fmt.Errorf("getdel navigation state: %w", err)
	}

	var payload domain.NavigationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.NavigationPayload{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	return payload, nil
}

// Purge implements Repository.Purge. Redis expires keys on its own.
func (r *RedisRepository) Purge(context.Context) (int64, error) {
	return 0, nil
}

// Close implements Repository.Close by closing the client.
func (r *RedisRepository) Close() error {
	if err := r.rdb.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}

	return nil
}
