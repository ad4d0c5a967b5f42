package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mgit/pkg/core"
	"mgit/pkg/storage"
	"mgit/pkg/types"

	"github.com/redis/go-redis/v9"
)

// CachedStore decorates a storage.Store with a Redis existence cache.
// Only the fact that a digest exists is cached; object bytes never are.
type CachedStore struct {
	backend storage.Store
	client  *redis.Client
	ttl     time.Duration
	policy  storage.WritePolicy
}

type Config struct {
	RedisURL    string // redis://<user>:<password>@<host>:<port>/<db>
	TTL         time.Duration
	WritePolicy storage.WritePolicy
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// fail fast
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	policy := cfg.WritePolicy
	if policy == "" {
		policy = storage.PolicySkip
	}
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		policy:  policy,
	}, nil
}

func (s *CachedStore) cacheKey(hash types.Hash) string {
	return "mgit:obj:" + string(hash)
}

// Close releases the Redis connection pool. The backend is not closed.
func (s *CachedStore) Close() error {
	return s.client.Close()
}

// Has answers from Redis when it can and falls back to the backend.
// A Redis failure degrades to uncached lookups instead of failing the call.
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		slog.Warn("redis exists failed, falling back to backend",
			slog.String("hash", string(hash)),
			slog.String("err", err.Error()),
		)
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	if found {
		// fill asynchronously; must survive cancellation of the caller's ctx
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put uses the cached Has as a pre-check and records the digest once the
// backend write succeeded.
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		if s.policy == storage.PolicyStrict {
			return storage.AlreadyExists(obj.ID())
		}
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.cacheKey(obj.ID()), "1", s.ttl).Err(); err != nil {
		slog.Warn("redis set failed",
			slog.String("hash", string(obj.ID())),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

func (s *CachedStore) Get(ctx context.Context, hash types.Hash) ([]byte, error) {
	return s.backend.Get(ctx, hash)
}

func (s *CachedStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return s.backend.ExpandHash(ctx, short)
}
