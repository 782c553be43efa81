package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Splitter  SplitterConfig  `yaml:"splitter" mapstructure:"splitter"`
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// SplitterConfig controls how entries are classified and written
type SplitterConfig struct {
	Dialect       string        `yaml:"dialect" mapstructure:"dialect"` // ecmascript or re2
	MatchTimeout  time.Duration `yaml:"match_timeout" mapstructure:"match_timeout"`
	DefaultOutput string        `yaml:"default_output" mapstructure:"default_output"`
	Separator     string        `yaml:"separator" mapstructure:"separator"`
	SourceFormat  string        `yaml:"source_format" mapstructure:"source_format"` // empty = detect from extension
}

// SourceConfig contains settings for non-file sources
type SourceConfig struct {
	CSV      CSVSourceConfig      `yaml:"csv" mapstructure:"csv"`
	Postgres PostgresSourceConfig `yaml:"postgres" mapstructure:"postgres"`
}

// CSVSourceConfig describes the CSV layout
type CSVSourceConfig struct {
	HasHeader bool `yaml:"has_header" mapstructure:"has_header"`
}

// PostgresSourceConfig contains the query and pool settings for PostgreSQL sources
type PostgresSourceConfig struct {
	Query           string        `yaml:"query" mapstructure:"query"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// CacheConfig contains Redis result cache configuration
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	Output string `yaml:"output" mapstructure:"output"` // stderr or stdout
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int             `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration   `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration   `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64           `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RateLimit    RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// TrustProxyHeaders keys clients by X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" mapstructure:"trust_proxy_headers"`
}

// RateLimitConfig contains per-client rate limiting settings
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Burst          int  `yaml:"burst" mapstructure:"burst"`
}

// WebSocketConfig contains WebSocket event stream configuration
type WebSocketConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Events   struct {
		BroadcastRuns        bool `yaml:"broadcast_runs" mapstructure:"broadcast_runs"`
		BroadcastEntries     bool `yaml:"broadcast_entries" mapstructure:"broadcast_entries"`
		BroadcastSkips       bool `yaml:"broadcast_skips" mapstructure:"broadcast_skips"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Splitter: SplitterConfig{
			Dialect:       "ecmascript",
			MatchTimeout:  time.Second,
			DefaultOutput: "output_file.json",
			Separator:     ",",
		},
		Source: SourceConfig{
			CSV: CSVSourceConfig{HasHeader: true},
			Postgres: PostgresSourceConfig{
				Query:           "SELECT regex, inputs, file_path FROM regex_entries ORDER BY id",
				MaxOpenConns:    4,
				MaxIdleConns:    2,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   1,
			DefaultTTL:     24 * time.Hour,
			KeyPrefix:      "regex-splitter",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 64 << 20, // 64 MiB
			RateLimit: RateLimitConfig{
				Enabled:        true,
				RequestsPerMin: 120,
				Burst:          20,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
	}
	cfg.Logging.File.Path = "logs/splitter.log"
	cfg.WebSocket.Events.BroadcastRuns = true
	cfg.WebSocket.Events.BroadcastEntries = true
	cfg.WebSocket.Events.BroadcastSkips = true
	cfg.WebSocket.Events.BroadcastConnections = true
	return cfg
}
