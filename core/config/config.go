package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"basegraph.app/airbrake-proxy/core/db"
)

type Config struct {
	OTel     OTelConfig
	Listen   ListenConfig
	Airbrake AirbrakeConfig
	Sentry   SentryConfig
	StatsD   StatsDConfig
	Env      string
	Redis    db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type ListenConfig struct {
	Host string
	Port int
	// PublicHost is the hostname advertised in the lookup URL handed back to clients.
	PublicHost   string
	Workers      int
	MaxBodyBytes int64
}

type AirbrakeConfig struct {
	Host      string
	Port      int
	Protocol  string
	Timeout   time.Duration
	LocateURL string
}

type SentryConfig struct {
	Host         string
	Port         int
	Protocol     string
	Timeout      time.Duration
	ProjectsFile string
	Projects     Projects
}

type StatsDConfig struct {
	Prefix string
}

// Load loads configuration from environment variables.
// In development it also loads a local .env file when present.
func Load() (Config, error) {
	if getEnv("AIRBRAKE_PROXY_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env: getEnv("AIRBRAKE_PROXY_ENV", "development"),
		Listen: ListenConfig{
			Host:         getEnv("LISTEN_HOST", "0.0.0.0"),
			Port:         getEnvInt("LISTEN_PORT", 8080),
			PublicHost:   getEnv("LISTEN_PUBLIC_HOST", "localhost"),
			Workers:      getEnvInt("WORKERS", runtime.NumCPU()),
			MaxBodyBytes: getEnvInt64("MAX_BODY_BYTES", 10<<20),
		},
		Airbrake: AirbrakeConfig{
			Host:      getEnv("AIRBRAKE_HOST", "api.airbrake.io"),
			Port:      getEnvInt("AIRBRAKE_PORT", 443),
			Protocol:  getEnv("AIRBRAKE_PROTOCOL", "https"),
			Timeout:   getEnvMillis("AIRBRAKE_TIMEOUT_MS", 10*time.Second),
			LocateURL: getEnv("AIRBRAKE_LOCATE_URL", "https://airbrake.io"),
		},
		Sentry: SentryConfig{
			Host:         getEnv("SENTRY_HOST", ""),
			Port:         getEnvInt("SENTRY_PORT", 443),
			Protocol:     getEnv("SENTRY_PROTOCOL", "https"),
			Timeout:      getEnvMillis("SENTRY_TIMEOUT_MS", 10*time.Second),
			ProjectsFile: getEnv("SENTRY_PROJECTS_FILE", ""),
		},
		StatsD: StatsDConfig{
			Prefix: getEnv("STATSD_PREFIX", "airbrake-proxy"),
		},
		Redis: db.Config{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Key: getEnv("REDIS_KEY", "airbrake-proxy"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "airbrake-proxy"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if cfg.Sentry.Enabled() && cfg.Sentry.ProjectsFile != "" {
		projects, err := LoadProjects(cfg.Sentry.ProjectsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Sentry.Projects = projects
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the minimum requirements for a worker to be able to serve traffic.
func (c Config) Validate() error {
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("LISTEN_PORT must be between 1 and 65535, got %d", c.Listen.Port)
	}
	if c.Listen.Workers < 0 {
		return fmt.Errorf("WORKERS must not be negative, got %d", c.Listen.Workers)
	}
	if c.Listen.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	if c.Airbrake.Host == "" {
		return fmt.Errorf("AIRBRAKE_HOST is required")
	}
	if err := validProtocol("AIRBRAKE_PROTOCOL", c.Airbrake.Protocol); err != nil {
		return err
	}
	if c.Airbrake.Timeout <= 0 {
		return fmt.Errorf("AIRBRAKE_TIMEOUT_MS must be positive")
	}
	if _, err := url.Parse(c.Airbrake.LocateURL); err != nil {
		return fmt.Errorf("AIRBRAKE_LOCATE_URL is invalid: %w", err)
	}
	if c.Sentry.Enabled() {
		if err := validProtocol("SENTRY_PROTOCOL", c.Sentry.Protocol); err != nil {
			return err
		}
		if c.Sentry.Timeout <= 0 {
			return fmt.Errorf("SENTRY_TIMEOUT_MS must be positive")
		}
	}
	if c.Redis.URL == "" || c.Redis.Key == "" {
		return fmt.Errorf("REDIS_URL and REDIS_KEY are required")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Enabled reports whether a secondary Sentry backend is configured at all.
func (c SentryConfig) Enabled() bool {
	return c.Host != ""
}

// BaseURL returns scheme://host:port for the Airbrake backend.
func (c AirbrakeConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// StoreURL returns the full URL of the Sentry store endpoint.
func (c SentryConfig) StoreURL() string {
	return fmt.Sprintf("%s://%s:%d/api/store/", c.Protocol, c.Host, c.Port)
}

// Address returns the host:port pair workers bind to.
func (c ListenConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func validProtocol(name, protocol string) error {
	if protocol != "http" && protocol != "https" {
		return fmt.Errorf("%s must be http or https, got %q", name, protocol)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Millisecond
		}
	}
	return fallback
}
