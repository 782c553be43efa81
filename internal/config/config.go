package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/raaihank/regex-splitter/internal/matcher"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// SPLITTER_SPLITTER_DIALECT=re2
const EnvPrefix = "SPLITTER"

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	// Read configuration
	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// newViper configures a viper instance with defaults, env overrides and
// search paths. Each call returns a fresh instance so loads never share state.
func newViper(configPath string) *viper.Viper {
	v := viper.New()
	setDefaults(v, GetDefaults())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("$HOME/.regex-splitter/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := GetDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// isNotFound reports whether a missing config file should fall back to
// defaults. An explicit path that does not exist surfaces as a PathError
// rather than ConfigFileNotFoundError.
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("splitter.dialect", d.Splitter.Dialect)
	v.SetDefault("splitter.match_timeout", d.Splitter.MatchTimeout)
	v.SetDefault("splitter.default_output", d.Splitter.DefaultOutput)
	v.SetDefault("splitter.separator", d.Splitter.Separator)
	v.SetDefault("splitter.source_format", d.Splitter.SourceFormat)

	v.SetDefault("source.csv.has_header", d.Source.CSV.HasHeader)
	v.SetDefault("source.postgres.query", d.Source.Postgres.Query)
	v.SetDefault("source.postgres.max_open_conns", d.Source.Postgres.MaxOpenConns)
	v.SetDefault("source.postgres.max_idle_conns", d.Source.Postgres.MaxIdleConns)
	v.SetDefault("source.postgres.conn_max_lifetime", d.Source.Postgres.ConnMaxLifetime)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.redis_url", d.Cache.RedisURL)
	v.SetDefault("cache.max_connections", d.Cache.MaxConnections)
	v.SetDefault("cache.min_idle_conns", d.Cache.MinIdleConns)
	v.SetDefault("cache.default_ttl", d.Cache.DefaultTTL)
	v.SetDefault("cache.key_prefix", d.Cache.KeyPrefix)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("logging.file.enabled", d.Logging.File.Enabled)
	v.SetDefault("logging.file.path", d.Logging.File.Path)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.requests_per_min", d.Server.RateLimit.RequestsPerMin)
	v.SetDefault("server.rate_limit.burst", d.Server.RateLimit.Burst)
	v.SetDefault("server.trust_proxy_headers", d.Server.TrustProxyHeaders)

	v.SetDefault("websocket.enabled", d.WebSocket.Enabled)
	v.SetDefault("websocket.path", d.WebSocket.Path)
	v.SetDefault("websocket.username", d.WebSocket.Username)
	v.SetDefault("websocket.password", d.WebSocket.Password)
	v.SetDefault("websocket.events.broadcast_runs", d.WebSocket.Events.BroadcastRuns)
	v.SetDefault("websocket.events.broadcast_entries", d.WebSocket.Events.BroadcastEntries)
	v.SetDefault("websocket.events.broadcast_skips", d.WebSocket.Events.BroadcastSkips)
	v.SetDefault("websocket.events.broadcast_connections", d.WebSocket.Events.BroadcastConnections)
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if _, err := matcher.ParseDialect(config.Splitter.Dialect); err != nil {
		return err
	}

	if config.Splitter.MatchTimeout < 0 {
		return fmt.Errorf("invalid match timeout: %s", config.Splitter.MatchTimeout)
	}

	switch config.Splitter.SourceFormat {
	case "", "jsonl", "csv", "parquet", "postgres":
	default:
		return fmt.Errorf("invalid source format: %s (must be jsonl, csv, parquet or postgres)", config.Splitter.SourceFormat)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.RateLimit.Enabled && config.Server.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute", config.Server.RateLimit.RequestsPerMin)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Logging.Output != "stderr" && config.Logging.Output != "stdout" {
		return fmt.Errorf("invalid log output: %s (must be stderr or stdout)", config.Logging.Output)
	}

	return nil
}

// Watch starts watching the configuration file for changes. Invalid
// revisions are logged and ignored; valid ones are passed to callback.
func Watch(configPath string, logger *zap.Logger, callback func(*Config)) error {
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				zap.String("file", e.Name),
				zap.Error(err))
			return
		}

		logger.Info("Configuration reloaded", zap.String("file", e.Name), zap.String("op", e.Op.String()))
		callback(newConfig)
	})
	v.WatchConfig()

	return nil
}
