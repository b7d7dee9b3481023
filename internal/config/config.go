package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type APIConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AuthConfig struct {
	Token string `yaml:"token"`
}

type RateLimitConfig struct {
	Limit   int         `yaml:"limit"`
	Window  string      `yaml:"window"`  // time.ParseDuration syntax, e.g. "1s", "500ms"
	Backend string      `yaml:"backend"` // "memory" | "redis"
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

const defaultAPIURL = "https://ismp.crpt.ru/api/v3/lk/documents/create"

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.URL == "" {
		cfg.API.URL = defaultAPIURL
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.RateLimit.Window == "" {
		cfg.RateLimit.Window = "1s"
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
}

func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if _, err := url.ParseRequestURI(cfg.API.URL); err != nil {
		return fmt.Errorf("api.url is not a valid url: %w", err)
	}
	if cfg.API.TimeoutSeconds < 0 {
		return errors.New("api.timeout_seconds cannot be negative")
	}
	if cfg.RateLimit.Limit <= 0 {
		return errors.New("rate_limit.limit must be > 0")
	}
	w, err := time.ParseDuration(cfg.RateLimit.Window)
	if err != nil {
		return fmt.Errorf("rate_limit.window is not a valid duration: %w", err)
	}
	if w <= 0 {
		return errors.New("rate_limit.window must be > 0")
	}

	switch strings.ToLower(cfg.RateLimit.Backend) {
	case "memory":
	case "redis":
		if cfg.RateLimit.Redis.Addr == "" {
			return errors.New("rate_limit.redis.addr is required for the redis backend")
		}
	default:
		return errors.New("rate_limit.backend must be memory or redis")
	}
	return nil
}

// ParseWindow returns the refill interval. Call after Validate.
func (r RateLimitConfig) ParseWindow() (time.Duration, error) {
	return time.ParseDuration(r.Window)
}

// Timeout returns the per-request timeout for the API client.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}
