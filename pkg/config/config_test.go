package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forbiddenlink/finance-quest-core/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load with empty path: %v", err)
	}

	if cfg.Cache.Namespace != "questcore" {
		t.Errorf("Namespace = %q", cfg.Cache.Namespace)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("TTL = %v", cfg.Cache.TTL)
	}
	if cfg.Persistence.Backend != "memory" {
		t.Errorf("Backend = %q", cfg.Persistence.Backend)
	}
	if cfg.Review.MaxDueItems != 10 {
		t.Errorf("MaxDueItems = %d", cfg.Review.MaxDueItems)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questcore.yaml")
	data := `
cache:
  namespace: calculators
  version: "2.1.0"
  ttl: 30m
  max_entries: 50
persistence:
  backend: bolt
  path: /var/lib/questcore/slots.db
review:
  max_due_items: 5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.Namespace != "calculators" {
		t.Errorf("Namespace = %q", cfg.Cache.Namespace)
	}
	if cfg.Cache.Version != "2.1.0" {
		t.Errorf("Version = %q", cfg.Cache.Version)
	}
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("TTL = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries != 50 {
		t.Errorf("MaxEntries = %d", cfg.Cache.MaxEntries)
	}
	if cfg.Persistence.Backend != "bolt" {
		t.Errorf("Backend = %q", cfg.Persistence.Backend)
	}
	if cfg.Review.MaxDueItems != 5 {
		t.Errorf("MaxDueItems = %d", cfg.Review.MaxDueItems)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging level = %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Cache.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v, want default", cfg.Cache.SweepInterval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing config file should be an error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	write := func(t *testing.T, body string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "cfg.yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "persistence:\n  backend: redis\n"},
		{"file backend without path", "persistence:\n  backend: file\n"},
		{"empty namespace", "cache:\n  namespace: \"\"\n"},
		{"negative max entries", "cache:\n  max_entries: -1\n"},
		{"zero due items", "review:\n  max_due_items: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := config.Load(write(t, tt.body)); err == nil {
				t.Errorf("config %q should fail validation", tt.body)
			}
		})
	}
}
