package cache

import (
	"time"

	"github.com/raaihank/regex-splitter/internal/dataset"
)

// CachedSplit is the stored value for one (dialect, regex, inputs) key
type CachedSplit struct {
	Entry    *dataset.ClassifiedEntry `json:"entry"`
	CachedAt time.Time                `json:"cached_at"`
	TTL      int64                    `json:"ttl"`
}

// CacheStats represents cache performance statistics
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	TotalKeys int64   `json:"total_keys"`
}

// Config contains cache configuration
type Config struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}
