package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/rubyemotes/internal/adapter/metrics"
	"github.com/pscheid92/rubyemotes/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	// configCacheTTL bounds how long another instance can serve a stale L2 entry
	// if it missed an invalidation message.
	configCacheTTL = 5 * time.Minute

	settingsDocument = "settings/main"

	layerMemory = "memory"
	layerRedis  = "redis"

	sourceLocal  = "local"
	sourceRemote = "remote"
)

// ConfigCacheRepo is a read-through cache over the settings/main document:
// L1 in process, L2 in Redis, then the repository.
type ConfigCacheRepo struct {
	rdb     goredis.Cmdable
	configs domain.ConfigRepository
	mem     *memoryCache
	clock   clockwork.Clock
	metrics *metrics.CacheMetrics
	group   singleflight.Group
}

var _ domain.ConfigSource = (*ConfigCacheRepo)(nil)

// NewConfigCacheRepo creates the cache. cacheMetrics may be nil.
func NewConfigCacheRepo(rdb goredis.Cmdable, configs domain.ConfigRepository, memCacheTTL time.Duration, clock clockwork.Clock, cacheMetrics *metrics.CacheMetrics) *ConfigCacheRepo {
	return &ConfigCacheRepo{
		rdb:     rdb,
		configs: configs,
		mem:     newMemoryCache(memCacheTTL, clock),
		clock:   clock,
		metrics: cacheMetrics,
	}
}

// StartEvictionTimer runs a periodic goroutine that evicts expired in-memory cache entries.
// Returns a stop function that should be deferred.
func (r *ConfigCacheRepo) StartEvictionTimer(interval time.Duration) func() {
	ticker := r.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := r.mem.evictExpired(); evicted > 0 {
					r.metrics.Evicted(evicted)
					slog.Debug("Evicted expired config cache entries", "count", evicted, "remaining", r.mem.size())
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Get returns the settings/main document, or domain.ErrConfigNotFound.
// Concurrent misses share one lookup.
func (r *ConfigCacheRepo) Get(ctx context.Context) (*domain.SiteConfig, error) {
	if entry, ok := r.mem.get(settingsDocument); ok {
		r.metrics.Lookup(layerMemory, true)
		return entry.result()
	}
	r.metrics.Lookup(layerMemory, false)

	v, err, _ := r.group.Do(settingsDocument, func() (any, error) {
		return r.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*cacheEntry).result()
}

func (r *ConfigCacheRepo) load(ctx context.Context) (*cacheEntry, error) {
	// Both counters are read before any lookup. If an invalidation lands
	// while this load runs, its result is returned but never cached.
	gen := r.mem.currentGeneration()
	version, versionOK := r.cacheVersion(ctx)

	if cfg, ok := r.getCached(ctx); ok {
		r.metrics.Lookup(layerRedis, true)
		entry := &cacheEntry{config: cfg, found: true}
		r.mem.setIfGeneration(settingsDocument, entry, gen)
		return entry, nil
	}
	r.metrics.Lookup(layerRedis, false)

	cfg, err := r.configs.Get(ctx)
	if errors.Is(err, domain.ErrConfigNotFound) {
		// Absence is cached in L1 only, so the first write anywhere shows up
		// here within one memory TTL even without an invalidation message.
		entry := &cacheEntry{}
		r.mem.setIfGeneration(settingsDocument, entry, gen)
		return entry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config lookup failed: %w", err)
	}

	entry := &cacheEntry{config: *cfg, found: true}
	if r.mem.setIfGeneration(settingsDocument, entry, gen) && versionOK {
		r.writeCache(ctx, *cfg, version)
	}
	return entry, nil
}

// Invalidate drops settings/main from both layers and tells other instances
// to drop their L1 copy. Bumping the Redis version makes loads that started
// earlier on any instance skip their L2 write.
func (r *ConfigCacheRepo) Invalidate(ctx context.Context) error {
	r.dropLocal(sourceLocal)

	pipe := r.rdb.TxPipeline()
	pipe.Incr(ctx, configVersionKey(settingsDocument))
	pipe.Del(ctx, configCacheKey(settingsDocument))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate config cache: %w", err)
	}
	if err := publishConfigInvalidation(ctx, r.rdb, settingsDocument); err != nil {
		return err
	}
	return nil
}

// dropLocal clears L1 and detaches callers from any lookup already in flight.
func (r *ConfigCacheRepo) dropLocal(source string) {
	r.mem.invalidate(settingsDocument)
	r.group.Forget(settingsDocument)
	r.metrics.Invalidated(source)
}

// cacheVersion reads the L2 version counter. A missing key is version 0.
func (r *ConfigCacheRepo) cacheVersion(ctx context.Context) (string, bool) {
	v, err := r.rdb.Get(ctx, configVersionKey(settingsDocument)).Result()
	if errors.Is(err, goredis.Nil) {
		return "0", true
	}
	if err != nil {
		slog.WarnContext(ctx, "Redis config version GET failed", "error", err)
		return "", false
	}
	return v, true
}

// setIfVersion writes the cache entry only while the version key still holds
// the value read before the lookup.
var setIfVersion = goredis.NewScript(`
if (redis.call("GET", KEYS[2]) or "0") ~= ARGV[2] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

func (r *ConfigCacheRepo) writeCache(ctx context.Context, cfg domain.SiteConfig, version string) {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal config for Redis cache", "error", err)
		return
	}

	keys := []string{configCacheKey(settingsDocument), configVersionKey(settingsDocument)}
	written, err := setIfVersion.Run(ctx, r.rdb, keys, encoded, version, configCacheTTL.Milliseconds()).Int()
	if err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis config cache", "error", err)
		return
	}
	if written == 0 {
		slog.DebugContext(ctx, "Skipped Redis config cache write after concurrent invalidation")
	}
}

func (r *ConfigCacheRepo) getCached(ctx context.Context) (domain.SiteConfig, bool) {
	data, err := r.rdb.Get(ctx, configCacheKey(settingsDocument)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis config cache GET failed", "error", err)
		}
		return domain.SiteConfig{}, false
	}

	var cfg domain.SiteConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached config", "error", err)
		return domain.SiteConfig{}, false
	}
	return cfg, true
}

func configCacheKey(document string) string {
	return "config_cache:" + document
}

func configVersionKey(document string) string {
	return "config_cache_version:" + document
}

// cacheEntry remembers a lookup result, including "not found".
type cacheEntry struct {
	config domain.SiteConfig
	found  bool
}

func (e *cacheEntry) result() (*domain.SiteConfig, error) {
	if !e.found {
		return nil, domain.ErrConfigNotFound
	}
	cfg := e.config
	return &cfg, nil
}

// memoryCache is an in-memory L1 cache with TTL-based expiry.
// generation counts invalidations. A writer that read an older generation
// has stale data and is not allowed to store it.
type memoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryCacheItem
	generation uint64
	ttl        time.Duration
	clock      clockwork.Clock
}

type memoryCacheItem struct {
	entry     *cacheEntry
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[string]memoryCacheItem),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(key string) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.entries[key]
	if !ok || c.clock.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.entry, true
}

func (c *memoryCache) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// setIfGeneration stores entry unless an invalidation happened after gen was read.
func (c *memoryCache) setIfGeneration(key string, entry *cacheEntry, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		return false
	}
	c.entries[key] = memoryCacheItem{
		entry:     entry,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	return true
}

func (c *memoryCache) set(key string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheItem{
		entry:     entry,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

func (c *memoryCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.generation++
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, item := range c.entries {
		if now.After(item.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
