package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. Values are resolved in
// order: defaults, optional tiktokgrab.yaml, TTGRAB_* environment
// variables. Flags override individual fields after loading.
type Config struct {
	DownloadDir    string        `mapstructure:"download_dir"`
	ProfileDir     string        `mapstructure:"profile_dir"`
	Concurrency    int           `mapstructure:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
	Headless       bool          `mapstructure:"headless"`
	Debug          bool          `mapstructure:"debug"`
	UserAgent      string        `mapstructure:"user_agent"`
}

const (
	DefaultConcurrency = 3
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/135.0.0.0 Safari/537.36"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DownloadDir:    "downloads",
		ProfileDir:     defaultProfileDir(),
		Concurrency:    DefaultConcurrency,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
		BrowserTimeout: 30 * time.Second,
		Headless:       true,
		Debug:          false,
		UserAgent:      defaultUserAgent,
	}
}

// Load resolves the configuration from defaults, an optional config
// file and the environment.
func Load() (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("download_dir", def.DownloadDir)
	v.SetDefault("profile_dir", def.ProfileDir)
	v.SetDefault("concurrency", def.Concurrency)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("retry_delay", def.RetryDelay)
	v.SetDefault("browser_timeout", def.BrowserTimeout)
	v.SetDefault("headless", def.Headless)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("user_agent", def.UserAgent)

	v.SetConfigName("tiktokgrab")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "tiktokgrab"))
	}

	v.SetEnvPrefix("TTGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field the way the downloaders rely on them.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DownloadDir) == "" {
		return fmt.Errorf("download_dir must be a non-empty path")
	}
	if strings.TrimSpace(c.ProfileDir) == "" {
		return fmt.Errorf("profile_dir must be a non-empty path")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %v", c.RetryDelay)
	}
	if c.BrowserTimeout < time.Second {
		return fmt.Errorf("browser_timeout must be at least 1s, got %v", c.BrowserTimeout)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user_agent must be a non-empty string")
	}
	return nil
}

func defaultProfileDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tiktokgrab", "profiles")
	}
	return "profiles"
}
