// Package config loads clinic-catalog settings from a TOML file and
// CLINIC_* environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/globalmed/clinic-catalog/pkg/pager"
)

const (
	defaultConfigPath       = "~/.config/clinic-catalog/config.toml"
	defaultBaseURL          = "http://localhost:8000/api/v1"
	defaultUserAgent        = "clinic-catalog/0.1.0"
	defaultLocale           = "ru"
	defaultRedisAddr        = "localhost:6379"
	defaultListenAddr       = ":8080"
	defaultLogLevel         = "info"
	defaultRequestTimeout   = 15 * time.Second
	defaultBatchConcurrency = 4
)

// Config holds the settings shared by all subcommands.
type Config struct {
	BaseURL   string
	UserAgent string
	Locale    string

	// RedisAddr enables the response cache and rate limit tracking.
	// Empty disables both.
	RedisAddr string
	RedisDB   int

	ListenAddr string
	LogLevel   string
	LogPretty  bool

	InitialReveal    int
	RevealStep       int
	RequestTimeout   time.Duration
	MaxRetries       int
	BatchConcurrency int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:          defaultBaseURL,
		UserAgent:        defaultUserAgent,
		Locale:           defaultLocale,
		RedisAddr:        defaultRedisAddr,
		ListenAddr:       defaultListenAddr,
		LogLevel:         defaultLogLevel,
		InitialReveal:    pager.DefaultInitialReveal,
		RevealStep:       pager.DefaultRevealStep,
		RequestTimeout:   defaultRequestTimeout,
		BatchConcurrency: defaultBatchConcurrency,
	}
}

type fileConfig struct {
	BaseURL          string  `toml:"base_url"`
	UserAgent        string  `toml:"user_agent"`
	Locale           string  `toml:"locale"`
	RedisAddr        *string `toml:"redis_addr"`
	RedisDB          *int    `toml:"redis_db"`
	ListenAddr       string  `toml:"listen_addr"`
	LogLevel         string  `toml:"log_level"`
	LogPretty        *bool   `toml:"log_pretty"`
	InitialReveal    int     `toml:"initial_reveal"`
	RevealStep       int     `toml:"reveal_step"`
	RequestTimeout   string  `toml:"request_timeout"`
	MaxRetries       *int    `toml:"max_retries"`
	BatchConcurrency int     `toml:"batch_concurrency"`
}

// Load reads path (or the default location when empty), applies CLINIC_*
// overrides and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if strings.TrimSpace(path) != "" {
			return Config{}, fmt.Errorf("config file %s: %w", resolved, err)
		}
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := cfg.applyFile(data); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(data []byte) error {
	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.BaseURL, raw.BaseURL)
	setString(&c.UserAgent, raw.UserAgent)
	setString(&c.Locale, raw.Locale)
	setString(&c.ListenAddr, raw.ListenAddr)
	setString(&c.LogLevel, raw.LogLevel)

	if raw.RedisAddr != nil {
		c.RedisAddr = strings.TrimSpace(*raw.RedisAddr)
	}
	if raw.RedisDB != nil {
		c.RedisDB = *raw.RedisDB
	}
	if raw.LogPretty != nil {
		c.LogPretty = *raw.LogPretty
	}
	if raw.MaxRetries != nil {
		c.MaxRetries = *raw.MaxRetries
	}
	if raw.InitialReveal > 0 {
		c.InitialReveal = raw.InitialReveal
	}
	if raw.RevealStep > 0 {
		c.RevealStep = raw.RevealStep
	}
	if raw.BatchConcurrency > 0 {
		c.BatchConcurrency = raw.BatchConcurrency
	}
	if s := strings.TrimSpace(raw.RequestTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse config: request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = envOrDefault("CLINIC_BASE_URL", c.BaseURL)
	c.UserAgent = envOrDefault("CLINIC_USER_AGENT", c.UserAgent)
	c.Locale = envOrDefault("CLINIC_LOCALE", c.Locale)
	c.ListenAddr = envOrDefault("CLINIC_LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = strings.ToLower(envOrDefault("CLINIC_LOG_LEVEL", c.LogLevel))
	c.LogPretty = envBool("CLINIC_LOG_PRETTY", c.LogPretty)

	// An explicitly empty CLINIC_REDIS_ADDR turns Redis off
	if v, ok := os.LookupEnv("CLINIC_REDIS_ADDR"); ok {
		c.RedisAddr = strings.TrimSpace(v)
	}
	c.RedisDB = envNonNegativeInt("CLINIC_REDIS_DB", c.RedisDB)

	c.InitialReveal = envPositiveInt("CLINIC_INITIAL_REVEAL", c.InitialReveal)
	c.RevealStep = envPositiveInt("CLINIC_REVEAL_STEP", c.RevealStep)
	c.RequestTimeout = envPositiveDuration("CLINIC_REQUEST_TIMEOUT", c.RequestTimeout)
	c.MaxRetries = envNonNegativeInt("CLINIC_MAX_RETRIES", c.MaxRetries)
	c.BatchConcurrency = envPositiveInt("CLINIC_BATCH_CONCURRENCY", c.BatchConcurrency)
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", c.BaseURL)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user_agent is required")
	}
	if c.InitialReveal <= 0 || c.RevealStep <= 0 {
		return fmt.Errorf("initial_reveal and reveal_step must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis_db must be >= 0 (got %d)", c.RedisDB)
	}
	return nil
}

// PagerOptions returns controller options named after list.
func (c Config) PagerOptions(list string) pager.Options {
	return pager.Options{
		InitialReveal: c.InitialReveal,
		RevealStep:    c.RevealStep,
		Name:          list,
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return b
}

func envPositiveInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func envNonNegativeInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return defaultVal
	}
	return parsed
}

func envPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}
