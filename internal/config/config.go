package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DotEnvFile is read before the environment when present. Variables already
// set in the environment win.
var DotEnvFile = ".env"

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	APIPort int

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int

	// Support desk identity used as sender of staff messages
	SupportID   string
	SupportName string

	// Inbox
	MaxMessageLength   int
	RecentMessageLimit int
	RealtimeDebounce   time.Duration

	// Realtime relay across instances (optional)
	RedisURL     string
	RedisChannel string

	// Profile directory cache
	ProfileCacheTTL time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", DotEnvFile, err)
	}

	cfg := &Config{}
	var err error

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	if cfg.APIPort, err = intEnv("API_PORT", 8080); err != nil {
		return nil, err
	}

	cfg.LogLevel = stringEnv("LOG_LEVEL", "info")

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = stringEnv("APP_ENV", "development")

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	cfg.SupportID = stringEnv("SUPPORT_ID", "support")
	cfg.SupportName = stringEnv("SUPPORT_NAME", "Customer Support")

	if cfg.MaxMessageLength, err = intEnv("MAX_MESSAGE_LENGTH", 2000); err != nil {
		return nil, err
	}
	if cfg.RecentMessageLimit, err = intEnv("RECENT_MESSAGE_LIMIT", 100); err != nil {
		return nil, err
	}

	debounceMS, err := intEnv("REALTIME_DEBOUNCE_MS", 300)
	if err != nil {
		return nil, err
	}
	cfg.RealtimeDebounce = time.Duration(debounceMS) * time.Millisecond

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RedisChannel = stringEnv("REDIS_CHANNEL", "shopdesk:messages")

	cfg.ProfileCacheTTL = time.Minute
	if ttl := os.Getenv("PROFILE_CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("PROFILE_CACHE_TTL must be a valid duration: %w", err)
		}
		cfg.ProfileCacheTTL = d
	}

	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if strings.TrimSpace(c.SupportID) == "" {
		return fmt.Errorf("SupportID cannot be empty")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MaxMessageLength must be positive")
	}
	if c.RecentMessageLimit <= 0 {
		return fmt.Errorf("RecentMessageLimit must be positive")
	}
	if c.RealtimeDebounce <= 0 {
		return fmt.Errorf("RealtimeDebounce must be positive")
	}
	if c.ProfileCacheTTL <= 0 {
		return fmt.Errorf("ProfileCacheTTL must be positive")
	}
	if c.RedisURL != "" && c.RedisChannel == "" {
		return fmt.Errorf("RedisChannel cannot be empty when REDIS_URL is set")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in database URL
	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	if strings.HasPrefix(c.DatabaseURL, "sqlite:") {
		return fmt.Errorf("sqlite is not allowed in production")
	}

	return nil
}

// Origins splits AllowedOrigins into a list
func (c *Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.String("support_id", c.SupportID),
		slog.Int("max_message_length", c.MaxMessageLength),
		slog.Int("recent_message_limit", c.RecentMessageLimit),
		slog.Duration("realtime_debounce", c.RealtimeDebounce),
		slog.Bool("redis_enabled", c.RedisURL != ""),
		slog.Duration("profile_cache_ttl", c.ProfileCacheTTL),
	)
}
