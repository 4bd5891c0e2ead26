package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Remote     RemoteConfig     `mapstructure:"remote"`
	Avatar     AvatarConfig     `mapstructure:"avatar"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Log        LogConfig        `mapstructure:"log"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RemoteConfig points at the API the patient list is loaded from.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AvatarConfig struct {
	PlaceholderURL string        `mapstructure:"placeholder_url"`
	BrokenHosts    []string      `mapstructure:"broken_hosts"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	AllowedTypes   []string      `mapstructure:"allowed_types"`
	PreviewTTL     time.Duration `mapstructure:"preview_ttl"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Pretty     bool   `mapstructure:"pretty"`
	TimeFormat string `mapstructure:"time_format"`
}

// RedisConfig enables change event publishing. Zero pool and retry values
// keep the go-redis defaults.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	Namespace         string `mapstructure:"namespace"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string][]string{
	"remote.base_url":               {"BASE_URL", "VITE_BASE_URL"},
	"remote.timeout":                {"REMOTE_TIMEOUT"},
	"server.port":                   {"PORT"},
	"log.level":                     {"LOG_LEVEL"},
	"log.pretty":                    {"LOG_PRETTY"},
	"log.time_format":               {"LOG_TIME_FORMAT"},
	"redis.url":                     {"REDIS_URL"},
	"redis.channel":                 {"REDIS_CHANNEL"},
	"avatar.broken_hosts":           {"AVATAR_BROKEN_HOSTS"},
	"avatar.placeholder_url":        {"AVATAR_PLACEHOLDER_URL"},
	"cors.allowed_origins":          {"CORS_ORIGINS"},
	"rate_limit.enabled":            {"RATE_LIMIT_ENABLED"},
	"rate_limit.rps":                {"RATE_LIMIT_RPS"},
	"rate_limit.burst":              {"RATE_LIMIT_BURST"},
	"monitoring.prometheus_enabled": {"PROMETHEUS_ENABLED"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout", 10*time.Second)

	v.SetDefault("avatar.placeholder_url", "/api/v1/assets/avatar-placeholder.svg")
	v.SetDefault("avatar.broken_hosts", []string{"cloudflare", "63bedcf7f5cfc0949b634fc8.mockapi.io", "as.com"})
	v.SetDefault("avatar.max_upload_bytes", 5*1024*1024)
	v.SetDefault("avatar.allowed_types", []string{"image/jpeg", "image/png", "image/gif", "image/webp"})
	v.SetDefault("avatar.preview_ttl", time.Duration(0))

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.time_format", time.RFC3339)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "patient-directory.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 0)

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.namespace", "patient_directory")
}

// Load reads config.yaml when present and applies environment overrides.
// A missing config file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/etc/patient-directory"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Avatar.BrokenHosts = splitList(cfg.Avatar.BrokenHosts)
	cfg.Avatar.AllowedTypes = splitList(cfg.Avatar.AllowedTypes)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.Remote.BaseURL = strings.TrimSpace(cfg.Remote.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would make the server unusable. An empty
// remote base URL is allowed: the initial load then fails and is reported
// to the user.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Avatar.MaxUploadBytes <= 0 {
		return fmt.Errorf("avatar.max_upload_bytes must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit.rps and rate_limit.burst must be positive when rate limiting is enabled")
	}
	return nil
}

// splitList flattens comma-separated entries, as environment variables deliver lists.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
