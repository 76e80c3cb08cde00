package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/utils"
)

// Default cache windows: a day of freshness, then a long serve-stale tail
// while background refreshes repopulate the entry.
const (
	DefaultMaxAge   = 24 * time.Hour
	DefaultStaleFor = 270 * 24 * time.Hour
)

// Entry is one cached response payload.
type Entry struct {
	Status   int       `json:"status"`
	Body     []byte    `json:"body"`
	StoredAt time.Time `json:"storedAt"`
}

// Store is a keyed entry store. Implementations expire entries some time
// after maxAge+staleFor; precise expiry is the Cache's concern, not theirs.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration)
}

// Cache is the response payload cache behind the stale-while-revalidate edge.
type Cache struct {
	store    Store
	logger   *zap.Logger
	maxAge   time.Duration
	staleFor time.Duration
}

// Opts is the set of options for a new Cache.
type Opts struct {
	Store    Store
	Logger   *zap.Logger
	MaxAge   time.Duration
	StaleFor time.Duration
}

// NewWithOpts creates a Cache with the given options, defaulting to an
// in-process store.
func NewWithOpts(o Opts) *Cache {
	if o.Store == nil {
		o.Store = NewMemoryStore()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.StaleFor <= 0 {
		o.StaleFor = DefaultStaleFor
	}
	return &Cache{store: o.Store, logger: o.Logger, maxAge: o.MaxAge, staleFor: o.StaleFor}
}

// NewFromEnv builds the cache from environment configuration, picking the
// redis store when REDIS_ENABLED=true and falling back to the in-process
// store when redis is unreachable.
func NewFromEnv(ctx context.Context, logger *zap.Logger) *Cache {
	var store Store
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		rs, err := NewRedisStore(ctx, logger)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process cache", zap.Error(err))
		} else {
			store = rs
		}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return NewWithOpts(Opts{
		Store:    store,
		Logger:   logger,
		MaxAge:   utils.EnvDuration("CACHE_MAX_AGE", DefaultMaxAge),
		StaleFor: utils.EnvDuration("CACHE_STALE_FOR", DefaultStaleFor),
	})
}

// MaxAge returns the freshness window.
func (c *Cache) MaxAge() time.Duration { return c.maxAge }

// StaleFor returns the serve-stale window that follows the freshness window.
func (c *Cache) StaleFor() time.Duration { return c.staleFor }

// Lookup returns the cached entry for key plus whether it is still fresh.
// Entries older than maxAge+staleFor are treated as absent.
func (c *Cache) Lookup(ctx context.Context, key string) (*Entry, bool, bool) {
	e, ok := c.store.Get(ctx, key)
	if !ok || e == nil {
		return nil, false, false
	}
	age := time.Since(e.StoredAt)
	if age > c.maxAge+c.staleFor {
		return nil, false, false
	}
	return e, age <= c.maxAge, true
}

// Store caches a response payload under key.
func (c *Cache) Store(ctx context.Context, key string, status int, body []byte) {
	c.store.Set(ctx, key, &Entry{Status: status, Body: body, StoredAt: time.Now()}, c.maxAge+c.staleFor)
}

// MemoryStore is the in-process fallback store: a concurrent map with lazy
// expiry on read.
type MemoryStore struct {
	entries *xsync.Map[string, *Entry]
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: xsync.NewMap[string, *Entry]()}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool) {
	return s.entries.Load(key)
}

// Set implements Store. The ttl is enforced lazily by the Cache's age check;
// the map itself just holds the latest entry per key.
func (s *MemoryStore) Set(_ context.Context, key string, e *Entry, _ time.Duration) {
	s.entries.Store(key, e)
}

// RedisStore keeps entries in redis so cached payloads survive restarts and
// are shared across replicas.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to redis using REDIS_HOST/PORT/PASSWORD/DB.
func NewRedisStore(ctx context.Context, logger *zap.Logger) (*RedisStore, error) {
	addr := utils.Env("REDIS_HOST", "localhost") + ":" + utils.Env("REDIS_PORT", "6379")

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.Env("REDIS_PASSWORD", ""),
		DB:       utils.EnvInt("REDIS_DB", 0),

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", addr))
	return &RedisStore{client: rdb, logger: logger}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		s.logger.Warn("Cache entry corrupt, dropping", zap.String("key", key), zap.Error(err))
		_ = s.client.Del(ctx, key).Err()
		return nil, false
	}
	return &e, true
}

// Set implements Store. Write failures are logged and swallowed; the cache is
// best-effort.
func (s *RedisStore) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the redis connection.
func (s *RedisStore) Close() error { return s.client.Close() }
