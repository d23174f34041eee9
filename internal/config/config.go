package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Session  SessionConfig
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

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token issuing parameters.
type AuthConfig struct {
	JWTSecret     string
	TokenLifetime string
	BcryptCost    int
}

// SessionConfig defines the channel names and storage keys shared by every
// console instance on the same device. Instances that disagree on these
// values stop seeing each other's login and logout events.
type SessionConfig struct {
	AdminChannel        string
	EmployeeChannel     string
	AdminTokenKey       string
	EmployeeTokenKey    string
	StoredAtKey         string
	RelayKey            string
	RelayClearDelayMS   int
	DefaultLogoutReason string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "jjc-console"),
			Env:                   getEnv("APP_ENV", "development"),
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
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenLifetime: getEnv("AUTH_TOKEN_LIFETIME", "medium"),
			BcryptCost:    getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Session: SessionConfig{
			AdminChannel:        getEnv("SESSION_ADMIN_CHANNEL", "jjc.session.admin"),
			EmployeeChannel:     getEnv("SESSION_EMPLOYEE_CHANNEL", "jjc.session.employee"),
			AdminTokenKey:       getEnv("SESSION_ADMIN_TOKEN_KEY", "jjc.auth.admin_token"),
			EmployeeTokenKey:    getEnv("SESSION_EMPLOYEE_TOKEN_KEY", "jjc.auth.employee_token"),
			StoredAtKey:         getEnv("SESSION_STORED_AT_KEY", "jjc.auth.stored_at"),
			RelayKey:            getEnv("SESSION_RELAY_KEY", "jjc.session.relay"),
			RelayClearDelayMS:   getEnvAsInt("SESSION_RELAY_CLEAR_DELAY_MS", 100),
			DefaultLogoutReason: getEnv("SESSION_DEFAULT_LOGOUT_REASON", "You have been logged out from another tab"),
		},
	}

	return cfg, nil
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

// RelayClearDelay returns how long a fallback broadcast write stays in
// storage before the writer deletes it again.
func (s SessionConfig) RelayClearDelay() time.Duration {
	if s.RelayClearDelayMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(s.RelayClearDelayMS) * time.Millisecond
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
