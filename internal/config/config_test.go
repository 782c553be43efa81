package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		def := GetDefaults()
		if cfg.Splitter.DefaultOutput != def.Splitter.DefaultOutput {
			t.Errorf("expected default output %q, got %q", def.Splitter.DefaultOutput, cfg.Splitter.DefaultOutput)
		}
		if cfg.Splitter.Dialect != "ecmascript" {
			t.Errorf("expected ecmascript dialect, got %q", cfg.Splitter.Dialect)
		}
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
splitter:
  dialect: re2
  match_timeout: 250ms
  default_output: out.json
logging:
  level: debug
  format: json
server:
  port: 9090
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Splitter.Dialect != "re2" {
			t.Errorf("expected re2, got %q", cfg.Splitter.Dialect)
		}
		if cfg.Splitter.MatchTimeout != 250*time.Millisecond {
			t.Errorf("expected 250ms, got %s", cfg.Splitter.MatchTimeout)
		}
		if cfg.Splitter.DefaultOutput != "out.json" {
			t.Errorf("expected out.json, got %q", cfg.Splitter.DefaultOutput)
		}
		if cfg.Server.Port != 9090 {
			t.Errorf("expected port 9090, got %d", cfg.Server.Port)
		}
		// untouched keys keep their defaults
		if cfg.Splitter.Separator != "," {
			t.Errorf("expected default separator, got %q", cfg.Splitter.Separator)
		}
		if !cfg.WebSocket.Events.BroadcastEntries {
			t.Error("expected default broadcast_entries to stay enabled")
		}
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("SPLITTER_SPLITTER_DEFAULT_OUTPUT", "env.json")
		t.Setenv("SPLITTER_SERVER_PORT", "7070")
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Splitter.DefaultOutput != "env.json" {
			t.Errorf("expected env.json, got %q", cfg.Splitter.DefaultOutput)
		}
		if cfg.Server.Port != 7070 {
			t.Errorf("expected port 7070, got %d", cfg.Server.Port)
		}
	})

	t.Run("MalformedFile", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "splitter: [unterminated")
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for malformed yaml")
		}
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Defaults", func(*Config) {}, ""},
		{"BadDialect", func(c *Config) { c.Splitter.Dialect = "pcre" }, "dialect"},
		{"NegativeTimeout", func(c *Config) { c.Splitter.MatchTimeout = -time.Second }, "match timeout"},
		{"BadSourceFormat", func(c *Config) { c.Splitter.SourceFormat = "xml" }, "source format"},
		{"BadPort", func(c *Config) { c.Server.Port = 70000 }, "port"},
		{"BadRateLimit", func(c *Config) { c.Server.RateLimit.RequestsPerMin = 0 }, "rate limit"},
		{"BadLevel", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"BadFormat", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"BadOutput", func(c *Config) { c.Logging.Output = "file" }, "log output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
