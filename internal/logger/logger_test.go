package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("JSONToWriter", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(Config{Level: "info", Format: "json", Writer: &buf})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		log.WithRunID("run-1").WithComponent("splitter").Info("hello")
		_ = log.Sync()

		var line map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
		}
		if line["msg"] != "hello" {
			t.Errorf("unexpected msg: %v", line["msg"])
		}
		if line["run_id"] != "run-1" || line["component"] != "splitter" {
			t.Errorf("missing context fields: %v", line)
		}
		if _, ok := line["timestamp"]; !ok {
			t.Error("expected timestamp key")
		}
	})

	t.Run("LevelFilters", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(Config{Level: "warn", Format: "console", Writer: &buf})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		log.Info("dropped")
		log.Warn("kept")
		_ = log.Sync()
		if strings.Contains(buf.String(), "dropped") {
			t.Error("info line should be filtered at warn level")
		}
		if !strings.Contains(buf.String(), "kept") {
			t.Error("warn line missing")
		}
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		if _, err := New(Config{Level: "loud"}); err == nil {
			t.Fatal("expected error for invalid level")
		}
	})

	t.Run("InvalidOutput", func(t *testing.T) {
		if _, err := New(Config{Level: "info", Output: "printer"}); err == nil {
			t.Fatal("expected error for invalid output")
		}
	})

	t.Run("FileCore", func(t *testing.T) {
		var buf bytes.Buffer
		path := filepath.Join(t.TempDir(), "splitter.log")
		log, err := New(Config{
			Level:  "info",
			Format: "json",
			Writer: &buf,
			File:   &FileConfig{Enabled: true, Path: path},
		})
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		log.Info("to both")
		_ = log.Sync()
		if !strings.Contains(buf.String(), "to both") {
			t.Error("expected line on the diagnostic writer")
		}
	})
}

func TestIsSensitiveHeader(t *testing.T) {
	for _, h := range []string{"Authorization", "X-Api-Key", "Cookie"} {
		if !isSensitiveHeader(h) {
			t.Errorf("%s should be sensitive", h)
		}
	}
	if isSensitiveHeader("Content-Type") {
		t.Error("Content-Type should not be sensitive")
	}
}
