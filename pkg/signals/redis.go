package signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/warden/pkg/config"

	"github.com/redis/go-redis/v9"
)

// redisGetter is the subset of redis.Cmdable used by RedisSource.
type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisSource reads the cache document from a Redis string key. Age is taken
// from the document's updated_at field.
type RedisSource struct {
	client redisGetter
	key    string
	now    func() time.Time
}

// NewRedisSource creates a source backed by a go-redis client.
func NewRedisSource(client redis.Cmdable, key string) *RedisSource {
	return &RedisSource{client: client, key: key, now: time.Now}
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (s *RedisSource) fetch(ctx context.Context) (Entities, time.Time, int64, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, 0, fmt.Errorf("%w: redis key %s", ErrCacheMissing, s.key)
		}
		return nil, time.Time{}, 0, fmt.Errorf("failed to read redis key %q: %w", s.key, err)
	}
	ents, updated, err := decode(data)
	if err != nil {
		return nil, time.Time{}, 0, err
	}
	if updated.IsZero() {
		return nil, time.Time{}, 0, fmt.Errorf("cache document in %q has no updated_at", s.key)
	}
	return ents, updated, int64(len(data)), nil
}

// Stat implements Source.
func (s *RedisSource) Stat(ctx context.Context) (Meta, error) {
	_, updated, size, err := s.fetch(ctx)
	if err != nil {
		return Meta{}, err
	}
	return Meta{Size: size, UpdatedAt: updated}, nil
}

// Load implements Source.
func (s *RedisSource) Load(ctx context.Context) (Snapshot, error) {
	ents, updated, _, err := s.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{UpdatedAt: updated, Age: age(s.now(), updated), Entities: ents}, nil
}

// NewSource selects the configured cache backend.
func NewSource(cfg config.CacheConfig) Source {
	if cfg.Backend == "redis" {
		return NewRedisSource(NewRedisClient(cfg.Redis), cfg.Redis.Key)
	}
	return NewFileSource(cfg.Path)
}
