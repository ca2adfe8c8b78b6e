// Package cache provides the shared two-tier cache used across the
// service: Redis when configured, always mirrored by an in-process TTL
// LRU so a Redis outage degrades performance, never correctness.
//
// Values are stored as JSON under namespaced keys (`<namespace>:<key>`).
// Temporary namespaces carry a TTL; permanent namespaces hold expensive
// external lookups (Wikipedia summaries, photo metadata, pinned
// translations) that must survive restarts.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tamadze/tamada/config"
)

// Cache namespaces. Temporary namespaces expire, permanent ones do not.
const (
	NSTranslationTemp      = "translation:temp"
	NSTranslationPermanent = "translation:permanent"
	NSEnrichmentTemp       = "enrichment:temp"
	NSEnrichmentPermanent  = "enrichment:permanent"
	NSDenseEmbeddings      = "search:dense:embeddings"
	NSDenseResults         = "search:dense:results"
	NSBM25Results          = "search:bm25:results"
	NSHybridFinal          = "search:hybrid:final"
	NSPrefilter            = "search:prefilter"
)

const (
	memoryCapacity  = 10000
	cleanupInterval = 5 * time.Minute
	pingTimeout     = 2 * time.Second
)

// Store is the process-wide cache instance. All components share one
// Store so hit-rate statistics and namespace clearing see the whole
// picture.
type Store struct {
	redis      *redis.Client
	memory     *memoryCache
	defaultTTL time.Duration
	stats      *statsSet
}

// New builds the store from Redis configuration. A missing, disabled or
// unreachable Redis never fails construction; the store simply runs on
// the memory tier alone.
func New(cfg config.RedisConfig) *Store {
	s := &Store{
		memory:     newMemoryCache(memoryCapacity, cleanupInterval),
		defaultTTL: time.Duration(cfg.DefaultTTL) * time.Second,
		stats:      newStatsSet(),
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = 24 * time.Hour
	}

	if !cfg.Enabled || cfg.URL == "" {
		slog.Info("Cache running memory-only", "redis", "disabled")
		return s
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		slog.Warn("Invalid Redis URL, cache degrades to memory-only", "error", err)
		return s
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unreachable, cache degrades to memory-only", "addr", opt.Addr, "error", err)
		client.Close()
		return s
	}

	s.redis = client
	slog.Info("Cache connected to Redis", "addr", opt.Addr, "default_ttl", s.defaultTTL)
	return s
}

// Client exposes the underlying Redis connection for components that
// keep their own key space (conversations). Nil in memory-only mode.
func (s *Store) Client() *redis.Client {
	return s.redis
}

// RedisConnected reports whether the remote tier is in use.
func (s *Store) RedisConnected() bool {
	return s.redis != nil
}

// Key hashes arbitrary key material into a fixed-width cache key.
// Multiple parts are joined with ":" before hashing.
func Key(material ...string) string {
	sum := md5.Sum([]byte(strings.Join(material, ":")))
	return hex.EncodeToString(sum[:])
}

func makeKey(namespace, key string) string {
	return namespace + ":" + key
}

// Get returns the raw JSON stored under namespace/key. Redis is
// consulted first; a Redis error counts as an error and falls through
// to the memory tier.
func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, bool) {
	cacheKey := makeKey(namespace, key)

	if s.redis != nil {
		val, err := s.redis.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil:
			s.stats.hit(namespace)
			return val, true
		case errors.Is(err, redis.Nil):
			s.stats.miss(namespace)
		default:
			s.stats.errored(namespace)
			slog.Warn("Redis get failed", "namespace", namespace, "error", err)
		}
	}

	if val, ok := s.memory.Get(cacheKey); ok {
		s.stats.hit(namespace)
		return val, true
	}

	s.stats.miss(namespace)
	return nil, false
}

// Set stores a value with a TTL. ttl <= 0 selects the default TTL.
// The memory tier is always written so a Redis failure only costs
// durability.
func (s *Store) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	cacheKey := makeKey(namespace, key)

	if s.redis != nil {
		if err := s.redis.SetEx(ctx, cacheKey, value, ttl).Err(); err != nil {
			s.stats.errored(namespace)
			slog.Warn("Redis set failed", "namespace", namespace, "error", err)
		}
	}

	s.memory.Set(cacheKey, value, ttl)
	s.stats.set(namespace, false)
}

// SetPermanent stores a value without expiry. Reserved for the
// *:permanent namespaces holding expensive external lookups.
func (s *Store) SetPermanent(ctx context.Context, namespace, key string, value []byte) {
	cacheKey := makeKey(namespace, key)

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, value, 0).Err(); err != nil {
			s.stats.errored(namespace)
			slog.Warn("Redis permanent set failed", "namespace", namespace, "error", err)
		}
	}

	s.memory.SetPermanent(cacheKey, value)
	s.stats.set(namespace, true)
}

// HasPermanent reports whether a permanent entry exists.
func (s *Store) HasPermanent(ctx context.Context, namespace, key string) bool {
	_, ok := s.Get(ctx, namespace, key)
	return ok
}

// Delete removes a single key from both tiers.
func (s *Store) Delete(ctx context.Context, namespace, key string) {
	cacheKey := makeKey(namespace, key)

	if s.redis != nil {
		if err := s.redis.Del(ctx, cacheKey).Err(); err != nil {
			s.stats.errored(namespace)
			slog.Warn("Redis delete failed", "namespace", namespace, "error", err)
		}
	}

	s.memory.Delete(cacheKey)
	s.stats.deleted()
}

// ClearNamespace removes every key under a namespace from both tiers
// and returns the number of entries removed. A Redis failure is
// returned but the memory purge still happens.
func (s *Store) ClearNamespace(ctx context.Context, namespace string) (int, error) {
	count := 0
	var redisErr error

	if s.redis != nil {
		keys, err := s.redis.Keys(ctx, namespace+":*").Result()
		if err != nil {
			s.stats.errored(namespace)
			redisErr = fmt.Errorf("failed to list namespace keys: %w", err)
		} else if len(keys) > 0 {
			deleted, err := s.redis.Del(ctx, keys...).Result()
			if err != nil {
				s.stats.errored(namespace)
				redisErr = fmt.Errorf("failed to delete namespace keys: %w", err)
			} else {
				count += int(deleted)
			}
		}
	}

	count += s.memory.DeletePrefix(namespace + ":")
	slog.Info("Cleared cache namespace", "namespace", namespace, "keys", count)
	return count, redisErr
}

// SetJSON marshals value and stores it with a TTL (default TTL when
// ttl <= 0).
func (s *Store) SetJSON(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		s.stats.errored(namespace)
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	s.Set(ctx, namespace, key, raw, ttl)
	return nil
}

// SetJSONPermanent marshals value and stores it without expiry.
func (s *Store) SetJSONPermanent(ctx context.Context, namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		s.stats.errored(namespace)
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	s.SetPermanent(ctx, namespace, key, raw)
	return nil
}

// GetJSON reads a namespaced key and unmarshals it into T. Entries
// that no longer decode are dropped so a stale schema cannot wedge a
// namespace.
func GetJSON[T any](ctx context.Context, s *Store, namespace, key string) (T, bool) {
	var out T
	raw, ok := s.Get(ctx, namespace, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Warn("Discarding undecodable cache entry", "namespace", namespace, "error", err)
		s.Delete(ctx, namespace, key)
		var zero T
		return zero, false
	}
	return out, true
}

// Stats returns a point-in-time snapshot of cache activity.
func (s *Store) Stats() StoreStats {
	snap := s.stats.snapshot()
	snap.MemoryCacheSize = s.memory.Len()
	snap.MemoryCacheMax = s.memory.capacity
	snap.RedisConnected = s.redis != nil
	return snap
}

// Close releases the Redis connection and stops the memory janitor.
func (s *Store) Close() error {
	s.memory.Close()
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
