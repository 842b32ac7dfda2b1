package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Run from a temp dir so a developer's tiktokgrab.yaml is not picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Expected Concurrency=%d, got %d", DefaultConcurrency, cfg.Concurrency)
	}
	if cfg.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected MaxRetries=%d, got %d", DefaultMaxRetries, cfg.MaxRetries)
	}
	if cfg.RetryDelay != DefaultRetryDelay {
		t.Errorf("Expected RetryDelay=%v, got %v", DefaultRetryDelay, cfg.RetryDelay)
	}
	if !cfg.Headless {
		t.Errorf("Expected Headless=true by default")
	}
	if cfg.Debug {
		t.Errorf("Expected Debug=false by default")
	}
	if cfg.DownloadDir != "downloads" {
		t.Errorf("Expected DownloadDir=downloads, got %q", cfg.DownloadDir)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TTGRAB_CONCURRENCY", "8")
	t.Setenv("TTGRAB_HEADLESS", "false")
	t.Setenv("TTGRAB_RETRY_DELAY", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Concurrency != 8 {
		t.Errorf("Expected Concurrency=8 from env, got %d", cfg.Concurrency)
	}
	if cfg.Headless {
		t.Errorf("Expected Headless=false from env")
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Errorf("Expected RetryDelay=250ms from env, got %v", cfg.RetryDelay)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := "concurrency: 5\nuser_agent: test-agent\n"
	if err := os.WriteFile("tiktokgrab.yaml", []byte(yaml), 0644); err != nil {
		t.Fatalf("Writing config file failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Concurrency != 5 {
		t.Errorf("Expected Concurrency=5 from file, got %d", cfg.Concurrency)
	}
	if cfg.UserAgent != "test-agent" {
		t.Errorf("Expected UserAgent from file, got %q", cfg.UserAgent)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"excessive retries", func(c *Config) { c.MaxRetries = 11 }},
		{"negative delay", func(c *Config) { c.RetryDelay = -time.Second }},
		{"short browser timeout", func(c *Config) { c.BrowserTimeout = 10 * time.Millisecond }},
		{"empty download dir", func(c *Config) { c.DownloadDir = "  " }},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Errorf("Default config must validate, got %v", err)
	}
}
