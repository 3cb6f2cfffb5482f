package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Providers ProvidersConfig
	Database  DatabaseConfig
	Daemon    DaemonConfig
	LogLevel  string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes and scrapes)
	HealthPort string

	// AllowedOrigins configures CORS for the panel frontend.
	AllowedOrigins []string
}

// AppConfig identifies this installation to upstream marketplaces and to
// users' browsers.
type AppConfig struct {
	// Name and Version form the outbound User-Agent together with BaseURL.
	Name    string
	Version string
	// BaseURL is the public URL of the panel, used for the User-Agent,
	// the Polymart callback URL, and post-callback redirects.
	BaseURL string
}

// UserAgent returns the fixed User-Agent sent on every marketplace call.
func (a AppConfig) UserAgent() string {
	return fmt.Sprintf("%s/%s (%s)", a.Name, a.Version, a.BaseURL)
}

// Host returns the hostname component of BaseURL; Polymart identifies the
// requesting service by it.
func (a AppConfig) Host() string {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return a.BaseURL
	}
	return u.Host
}

// ProvidersConfig holds marketplace adapter settings.
type ProvidersConfig struct {
	CurseForgeAPIKey string
	UpstreamTimeout  time.Duration
	// OverridesFile optionally points at a YAML file remapping upstream
	// base URLs per provider (testing, proxies, regional mirrors).
	OverridesFile string
	// SearchCacheTTL and SearchCacheSize configure the gateway's short-TTL
	// search response cache.
	SearchCacheTTL  time.Duration
	SearchCacheSize int
	// PendingLinkMaxAge is how long a pending Polymart link survives
	// before the sweeper discards it.
	PendingLinkMaxAge time.Duration
}

// DatabaseConfig selects and configures the link-store database.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver      string
	SQLitePath  string
	PostgresURL string
}

// DaemonConfig locates the game-server daemon that stages plugin files.
type DaemonConfig struct {
	URL         string
	Token       string
	PullTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PLUGINHUB_HOST", "0.0.0.0"),
			Port:            getEnv("PLUGINHUB_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PLUGINHUB_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PLUGINHUB_WRITE_TIMEOUT", 3*time.Minute),
			IdleTimeout:     getEnvDuration("PLUGINHUB_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PLUGINHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("PLUGINHUB_HEALTH_PORT", "9090"),
			AllowedOrigins:  splitAndTrim(getEnv("PLUGINHUB_ALLOWED_ORIGINS", "*")),
		},
		App: AppConfig{
			Name:    getEnv("PLUGINHUB_APP_NAME", "pluginhub"),
			Version: getEnv("PLUGINHUB_APP_VERSION", "1.0.0"),
			BaseURL: getEnv("PLUGINHUB_BASE_URL", "http://localhost:8080"),
		},
		Providers: ProvidersConfig{
			CurseForgeAPIKey:  getEnv("PLUGINHUB_CURSEFORGE_API_KEY", ""),
			UpstreamTimeout:   getEnvDuration("PLUGINHUB_UPSTREAM_TIMEOUT", 10*time.Second),
			OverridesFile:     getEnv("PLUGINHUB_PROVIDER_OVERRIDES", ""),
			SearchCacheTTL:    getEnvDuration("PLUGINHUB_SEARCH_CACHE_TTL", 60*time.Second),
			SearchCacheSize:   getEnvInt("PLUGINHUB_SEARCH_CACHE_SIZE", 512),
			PendingLinkMaxAge: getEnvDuration("PLUGINHUB_PENDING_LINK_MAX_AGE", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("PLUGINHUB_DB_DRIVER", "sqlite"),
			SQLitePath:  getEnv("PLUGINHUB_SQLITE_PATH", "pluginhub.db"),
			PostgresURL: getEnv("PLUGINHUB_POSTGRES_URL", ""),
		},
		Daemon: DaemonConfig{
			URL:         getEnv("PLUGINHUB_DAEMON_URL", ""),
			Token:       getEnv("PLUGINHUB_DAEMON_TOKEN", ""),
			PullTimeout: getEnvDuration("PLUGINHUB_DAEMON_PULL_TIMEOUT", 2*time.Minute),
		},
		LogLevel: getEnv("PLUGINHUB_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.App.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(c.App.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite database")
		}
	case "postgres":
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres database")
		}
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite or postgres)", c.Database.Driver)
	}

	return nil
}

// ProviderOverrides maps provider names to upstream base URL overrides,
// loaded from the optional YAML overrides file.
type ProviderOverrides map[string]struct {
	BaseURL string `yaml:"base_url"`
}

// LoadProviderOverrides reads the overrides file. A missing configured path
// is an error; an unset path yields an empty map.
func LoadProviderOverrides(path string) (ProviderOverrides, error) {
	if path == "" {
		return ProviderOverrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider overrides: %w", err)
	}
	overrides := ProviderOverrides{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse provider overrides: %w", err)
	}
	for name, o := range overrides {
		if o.BaseURL != "" && !strings.HasSuffix(o.BaseURL, "/") {
			o.BaseURL += "/"
			overrides[name] = o
		}
	}
	return overrides, nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
