package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/dataset"
	"github.com/raaihank/regex-splitter/internal/matcher"
)

// MatchCache stores classification results in Redis so repeated
// (dialect, regex, inputs) triples skip compilation and matching
type MatchCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMatchCache creates a new Redis-backed result cache
func NewMatchCache(config *Config, logger *zap.Logger) (*MatchCache, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	mc := &MatchCache{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := mc.client.Ping(ctx).Err(); err != nil {
		mc.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Match cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return mc, nil
}

// Lookup returns the cached classification for entry. Redis failures and
// corrupt payloads count as misses; corrupt keys are deleted. The returned
// entry carries entry's file path.
func (mc *MatchCache) Lookup(ctx context.Context, dialect matcher.Dialect, entry *dataset.InputEntry) (*dataset.ClassifiedEntry, bool) {
	key := generateKey(mc.config.KeyPrefix, dialect, entry)

	data, err := mc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		mc.misses.Add(1)
		mc.logger.Debug("Cache miss", zap.String("key", key))
		return nil, false
	} else if err != nil {
		mc.misses.Add(1)
		mc.logger.Warn("Cache lookup failed", zap.Error(err))
		return nil, false
	}

	var cached CachedSplit
	if err := json.Unmarshal(data, &cached); err != nil || cached.Entry == nil {
		mc.misses.Add(1)
		mc.logger.Warn("Discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		mc.client.Del(ctx, key)
		return nil, false
	}

	mc.hits.Add(1)
	mc.logger.Debug("Cache hit", zap.String("key", key))

	result := cached.Entry
	result.Regex = entry.Regex
	result.FilePath = entry.FilePath
	if result.PositiveInputs == nil {
		result.PositiveInputs = []string{}
	}
	if result.NegativeInputs == nil {
		result.NegativeInputs = []string{}
	}
	return result, true
}

// Store caches the classification of entry
func (mc *MatchCache) Store(ctx context.Context, dialect matcher.Dialect, entry *dataset.InputEntry, result *dataset.ClassifiedEntry) error {
	key := generateKey(mc.config.KeyPrefix, dialect, entry)

	data, err := json.Marshal(&CachedSplit{
		Entry:    result,
		CachedAt: time.Now(),
		TTL:      int64(mc.config.DefaultTTL.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal result for caching: %w", err)
	}

	if err := mc.client.Set(ctx, key, data, mc.config.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Stats returns cache performance statistics. TotalKeys counts the keys
// under this cache's prefix only.
func (mc *MatchCache) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{
		Hits:   mc.hits.Load(),
		Misses: mc.misses.Load(),
	}

	// Calculate hit rate
	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	keys, err := mc.scanKeys(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalKeys = int64(len(keys))

	return stats, nil
}

// Clear removes all cached results under the key prefix and returns the
// number of keys deleted
func (mc *MatchCache) Clear(ctx context.Context) (int, error) {
	keys, err := mc.scanKeys(ctx)
	if err != nil {
		return 0, err
	}

	// Delete keys in batches
	batchSize := 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		if err := mc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return 0, fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	mc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return len(keys), nil
}

// scanKeys lists the keys under the prefix using SCAN
func (mc *MatchCache) scanKeys(ctx context.Context) ([]string, error) {
	iter := mc.client.Scan(ctx, 0, mc.config.KeyPrefix+":split:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return keys, nil
}

// Close closes the Redis connection
func (mc *MatchCache) Close() error {
	if mc.client != nil {
		return mc.client.Close()
	}
	return nil
}

// generateKey hashes the fields that determine a classification. The JSON
// array encoding keeps field boundaries unambiguous.
func generateKey(prefix string, dialect matcher.Dialect, entry *dataset.InputEntry) string {
	material, _ := json.Marshal([]interface{}{string(dialect), entry.Regex, entry.Inputs})
	sum := sha256.Sum256(material)
	hash := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s:split:%s", prefix, hash[:32])
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
