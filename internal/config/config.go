// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Catalog  CatalogConfig
	Search   SearchConfig
	Sessions SessionsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed origins for the browser dashboard (default: *)
	RateLimitRPS float64       // Inbound requests per second per client IP; 0 disables
	RateBurst    int
}

// CatalogConfig holds settings for the remote Book API.
type CatalogConfig struct {
	BaseURL   string
	Timeout   time.Duration // Read request timeout; rating writes have none (default: 10s)
	RPS       float64       // Outbound requests per second (default: 10)
	Burst     int           // Outbound burst (default: 20)
	UserAgent string
}

// SearchConfig holds local search index settings.
type SearchConfig struct {
	// RefreshInterval is how often the catalog is re-indexed. Zero disables periodic refresh.
	RefreshInterval time.Duration
	// PageSize is the page size used when walking /book/all.
	PageSize int
}

// SessionsConfig holds rating edit session settings.
type SessionsConfig struct {
	IdleTTL       time.Duration // Sessions idle longer than this are closed (default: 30m)
	SweepInterval time.Duration // How often idle sessions are swept (default: 1m)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig with explicit arguments.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bookshelf", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins (default: *)")
	rateLimit := fs.String("rate-limit", "", "Inbound requests per second per client (default: 20, 0 disables)")

	// Catalog flags
	catalogURL := fs.String("catalog-url", "", "Base URL of the remote Book API")
	catalogTimeout := fs.String("catalog-timeout", "", "Book API read timeout (default: 10s)")
	catalogRPS := fs.String("catalog-rps", "", "Book API requests per second (default: 10)")

	// Search flags
	searchRefresh := fs.String("search-refresh", "", "Catalog re-index interval (default: 5m, 0 disables)")

	// Session flags
	sessionTTL := fs.String("session-ttl", "", "Idle rating session lifetime (default: 30m)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is fine; variables already in the environment win.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %q: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			RateBurst:   getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
		Catalog: CatalogConfig{
			BaseURL:   strings.TrimRight(getConfigValue(*catalogURL, "CATALOG_BASE_URL", ""), "/"),
			Burst:     getIntConfigValue("", "CATALOG_BURST", 20),
			UserAgent: getConfigValue("", "CATALOG_USER_AGENT", "bookshelf-server/1.0"),
		},
		Search: SearchConfig{
			PageSize: getIntConfigValue("", "SEARCH_PAGE_SIZE", 100),
		},
	}

	var err error
	if cfg.Server.RateLimitRPS, err = parseFloat(*rateLimit, "RATE_LIMIT_RPS", "20"); err != nil {
		return nil, err
	}
	if cfg.Catalog.RPS, err = parseFloat(*catalogRPS, "CATALOG_RPS", "10"); err != nil {
		return nil, err
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*catalogTimeout, "CATALOG_TIMEOUT", "10s", &cfg.Catalog.Timeout},
		{*searchRefresh, "SEARCH_REFRESH_INTERVAL", "5m", &cfg.Search.RefreshInterval},
		{*sessionTTL, "SESSION_IDLE_TTL", "30m", &cfg.Sessions.IdleTTL},
		{"", "SESSION_SWEEP_INTERVAL", "1m", &cfg.Sessions.SweepInterval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("CATALOG_BASE_URL is required")
	}
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid catalog base URL: %s (must be an absolute http(s) URL)", c.Catalog.BaseURL)
	}

	if c.Catalog.Timeout <= 0 {
		return errors.New("catalog timeout must be positive")
	}
	if c.Catalog.RPS <= 0 || c.Catalog.Burst <= 0 {
		return errors.New("catalog rate limit and burst must be positive")
	}
	if c.Server.RateLimitRPS < 0 {
		return errors.New("inbound rate limit cannot be negative")
	}
	if c.Search.PageSize <= 0 {
		return errors.New("search page size must be positive")
	}
	if c.Sessions.IdleTTL <= 0 || c.Sessions.SweepInterval <= 0 {
		return errors.New("session TTL and sweep interval must be positive")
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func parseFloat(flagValue, envKey, defaultValue string) (float64, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
