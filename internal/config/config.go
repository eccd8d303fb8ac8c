package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevelopmentSecret is the fallback signing secret used outside production.
const DevelopmentSecret = "dev-autologin-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Routes    RoutesConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. When disabled the replay guard
// and session store stay in process memory.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines auto-login and session parameters.
type AuthConfig struct {
	AutoLoginSecret            string
	AutoLoginIssuer            string
	AutoLoginAudience          string
	AutoLoginIssuerTag         string
	SessionTTLMinutes          int
	SessionCookieName          string
	SessionCookieSecure        bool
	BcryptCost                 int
	ReplaySweepIntervalSeconds int
}

// RoutesConfig names the browser-facing redirect targets.
type RoutesConfig struct {
	LandingPath string
	LoginPath   string
}

// RateLimitConfig bounds unauthenticated login attempts per client IP.
type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "order-tagger"),
			Env:                   env,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AutoLoginSecret:            getEnv("AUTOLOGIN_SECRET", defaultSecret(env)),
			AutoLoginIssuer:            getEnv("AUTOLOGIN_ISSUER", "storefront"),
			AutoLoginAudience:          getEnv("AUTOLOGIN_AUDIENCE", "order-tagger"),
			AutoLoginIssuerTag:         getEnv("AUTOLOGIN_ISSUER_TAG", "storefront-admin"),
			SessionTTLMinutes:          getEnvAsInt("SESSION_TTL_MINUTES", 480),
			SessionCookieName:          getEnv("SESSION_COOKIE_NAME", "ordertagger_sid"),
			SessionCookieSecure:        getEnvAsBool("SESSION_COOKIE_SECURE", env == "production"),
			BcryptCost:                 getEnvAsInt("AUTH_BCRYPT_COST", 12),
			ReplaySweepIntervalSeconds: getEnvAsInt("REPLAY_SWEEP_INTERVAL_SECONDS", 60),
		},
		Routes: RoutesConfig{
			LandingPath: getEnv("LANDING_PATH", "/dashboard"),
			LoginPath:   getEnv("LOGIN_PATH", "/login"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
			Burst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run the auto-login protocol safely.
func (c *Config) Validate() error {
	if c.Auth.AutoLoginSecret == "" {
		return errors.New("AUTOLOGIN_SECRET is required")
	}
	if c.App.Env == "production" && c.Auth.AutoLoginSecret == DevelopmentSecret {
		return errors.New("AUTOLOGIN_SECRET must be set explicitly in production")
	}
	if c.Auth.AutoLoginIssuer == "" || c.Auth.AutoLoginAudience == "" {
		return errors.New("AUTOLOGIN_ISSUER and AUTOLOGIN_AUDIENCE are required")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the fixed lifetime of a server-side session.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// ReplaySweepInterval returns how often expired replay entries are evicted.
func (a AuthConfig) ReplaySweepInterval() time.Duration {
	if a.ReplaySweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(a.ReplaySweepIntervalSeconds) * time.Second
}

func defaultSecret(env string) string {
	if env == "production" {
		return ""
	}
	return DevelopmentSecret
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
