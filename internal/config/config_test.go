package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alan-mat/scholar/internal/session"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("expected default config to be valid, got '%v'", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
server:
  listen_port: 6000
  idle_timeout: 30s
generation:
  provider: openai
  model: gpt-4.1-mini
  timeout: 2m
  max_concurrent: 4
quota:
  backend: redis
citations:
  source: vector
  references:
    - doi: 10.1145/3411764.3445520
      title: Streaming interfaces
log:
  level: debug
  format: json
`)

	conf, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if conf.Server.ListenPort != 6000 {
		t.Errorf("expected listen port 6000, got %d", conf.Server.ListenPort)
	}
	if conf.Server.IdleTimeout != 30*time.Second {
		t.Errorf("expected idle timeout 30s, got %s", conf.Server.IdleTimeout)
	}
	if conf.Generation.Provider != "openai" || conf.Generation.Timeout != 2*time.Minute {
		t.Errorf("unexpected generation config: %+v", conf.Generation)
	}
	if conf.Generation.MaxConcurrent != 4 {
		t.Errorf("expected max concurrent 4, got %d", conf.Generation.MaxConcurrent)
	}
	if len(conf.Citations.References) != 1 || conf.Citations.References[0].Title != "Streaming interfaces" {
		t.Errorf("unexpected references: %+v", conf.Citations.References)
	}

	// untouched sections keep their defaults
	if conf.Transport.Addr != "localhost:6379" {
		t.Errorf("expected default redis addr, got '%s'", conf.Transport.Addr)
	}
	if conf.Worker.Concurrency != 10 {
		t.Errorf("expected default concurrency 10, got %d", conf.Worker.Concurrency)
	}
	if conf.Citations.Limit != 3 {
		t.Errorf("expected default citation limit 3, got %d", conf.Citations.Limit)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"quota backend": "quota:\n  backend: postgres\n",
		"quota plan":    "quota:\n  limits:\n    ENTERPRISE: 5\n",
		"citations":     "citations:\n  source: crossref\n",
		"log level":     "log:\n  level: chatty\n",
		"port":          "server:\n  listen_port: -1\n",
	}

	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scholar.yaml")
	if err := os.WriteFile(path, []byte("worker:\n  concurrency: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	conf, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Worker.Concurrency != 3 {
		t.Errorf("expected concurrency 3, got %d", conf.Worker.Concurrency)
	}

	if _, err := Read(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPlanLimits(t *testing.T) {
	limits := Default().Quota.PlanLimits()
	if limits[session.PlanPro] != 2000 {
		t.Errorf("expected PRO limit 2000, got %d", limits[session.PlanPro])
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "trace", "t-1")

	out := buf.String()
	if bytes.Contains([]byte(out), []byte("hidden")) {
		t.Errorf("expected info to be filtered, got '%s'", out)
	}
	if !bytes.Contains([]byte(out), []byte(`"trace":"t-1"`)) {
		t.Errorf("expected json attribute, got '%s'", out)
	}
}
