package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Fallback secrets used outside production when none are configured.
	DefaultAccessSecret  = "defaultsecret"
	DefaultRefreshSecret = "defaultrefreshsecret"

	EnvProduction = "production"
)

type Config struct {
	DatabaseURL      string
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int
	ServerPort       string
	ServerHost       string
	Environment      string

	CacheEnabled bool
	RedisURL     string
	CacheTTL     time.Duration

	LogLevel  string
	LogFormat string

	// CORS configuration
	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required in production")
	ErrMissingRefreshSecret = errors.New("JWT_REFRESH_SECRET is required in production")
	ErrSharedSecrets        = errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	ErrInvalidTokenTTL      = errors.New("invalid token TTL format")
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		BcryptCost:       getEnvOrDefaultInt("BCRYPT_COST", 10),
		ServerPort:       getEnvOrDefault("SERVER_PORT", "3000"),
		ServerHost:       getEnvOrDefault("SERVER_HOST", "localhost"),
		Environment:      getEnvOrDefault("ENV", "development"),

		CacheEnabled: getEnvOrDefaultBool("CACHE_ENABLED", false),
		RedisURL:     getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		CacheTTL:     getEnvOrDefaultDuration("CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		CORSEnabled:          getEnvOrDefaultBool("CORS_ENABLED", true),
		CORSAllowCredentials: getEnvOrDefaultBool("CORS_ALLOW_CREDENTIALS", true),
		CORSAllowedOrigins:   parseAllowedOrigins(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}

	if err := cfg.applySecretDefaults(); err != nil {
		return nil, err
	}

	accessTokenTTL, err := parseTokenTTL(getEnvOrDefault("JWT_ACCESS_TOKEN_TTL", "3600"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.AccessTokenTTL = accessTokenTTL

	refreshTokenTTL, err := parseTokenTTL(getEnvOrDefault("JWT_REFRESH_TOKEN_TTL", "604800"))
	if err != nil {
		return nil, ErrInvalidTokenTTL
	}
	cfg.RefreshTokenTTL = refreshTokenTTL

	return cfg, nil
}

// applySecretDefaults fills unset signing secrets with the insecure fallbacks,
// except in production where an unset secret is a startup failure.
func (c *Config) applySecretDefaults() error {
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return ErrMissingJWTSecret
		}
		if c.JWTRefreshSecret == "" {
			return ErrMissingRefreshSecret
		}
	}
	if c.JWTSecret == "" {
		c.JWTSecret = DefaultAccessSecret
	}
	if c.JWTRefreshSecret == "" {
		c.JWTRefreshSecret = DefaultRefreshSecret
	}
	if c.JWTSecret == c.JWTRefreshSecret {
		return ErrSharedSecrets
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// UsesDefaultSecrets reports whether either signing secret is a built-in fallback.
func (c *Config) UsesDefaultSecrets() bool {
	return c.JWTSecret == DefaultAccessSecret || c.JWTRefreshSecret == DefaultRefreshSecret
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// interpret as seconds if numeric, else parse like Go duration
		if n, err := strconv.Atoi(value); err == nil {
			return time.Duration(n) * time.Second
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func parseTokenTTL(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, ErrInvalidTokenTTL
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseAllowedOrigins(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			res = append(res, trimmed)
		}
	}
	return res
}
