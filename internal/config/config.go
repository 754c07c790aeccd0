package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultScheduleCron fires the inactivity job daily at 08:00.
	DefaultScheduleCron = "0 8 * * *"
	// DefaultInactivityThresholdDays is the single source of truth for the inactivity window.
	DefaultInactivityThresholdDays = 14
	DefaultReportDir               = "diagnostics/lms_reports"
	DefaultRunTimeoutSeconds       = 1800
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Mail      MailConfig
	Scheduler SchedulerConfig
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
	MigrationsDir  string
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
	Level       string
	Development bool
	Service     string
	Env         string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// MailConfig selects and configures the outbound mail driver.
type MailConfig struct {
	Driver         string
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendgridAPIKey string
	ResendAPIKey   string
	Subject        string
}

// SchedulerConfig drives the inactivity notification job.
type SchedulerConfig struct {
	Enabled                 bool
	Cron                    string
	InactivityThresholdDays int
	DiagnosticsEnabled      bool
	ReportDir               string
	RunTimeoutSeconds       int
	// DeactivateOnNotify also clears is_active for every notified user.
	DeactivateOnNotify bool
	RunLock            string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold := getEnvAsInt("LMS_INACTIVITY_THRESHOLD_DAYS", DefaultInactivityThresholdDays)
	if threshold <= 0 {
		return nil, fmt.Errorf("invalid LMS_INACTIVITY_THRESHOLD_DAYS: %d", threshold)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "lms-backend"),
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
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env == "development",
			Service:     getEnv("APP_NAME", "lms-backend"),
			Env:         env,
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Mail: MailConfig{
			Driver:         strings.ToLower(getEnv("MAIL_DRIVER", "console")),
			From:           getEnv("MAIL_FROM", "noreply@example.com"),
			FromName:       getEnv("MAIL_FROM_NAME", "LMS Notifications"),
			SMTPHost:       getEnv("MAIL_SERVER", "smtp.gmail.com"),
			SMTPPort:       getEnvAsInt("MAIL_PORT", 587),
			SMTPUsername:   os.Getenv("MAIL_USERNAME"),
			SMTPPassword:   os.Getenv("MAIL_PASSWORD"),
			SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			ResendAPIKey:   os.Getenv("RESEND_API_KEY"),
			Subject:        getEnv("NOTIFICATION_EMAIL_SUBJECT", "We miss you in your online courses!"),
		},
		Scheduler: SchedulerConfig{
			Enabled:                 getEnvAsBool("LMS_SCHEDULER_ENABLED", true),
			Cron:                    getEnv("LMS_SCHEDULE_CRON", DefaultScheduleCron),
			InactivityThresholdDays: threshold,
			DiagnosticsEnabled:      getEnvAsBool("LMS_ENABLE_DIAGNOSTICS", false),
			ReportDir:               getEnv("LMS_REPORT_DIR", DefaultReportDir),
			RunTimeoutSeconds:       getEnvAsInt("LMS_RUN_TIMEOUT_SECONDS", DefaultRunTimeoutSeconds),
			DeactivateOnNotify:      getEnvAsBool("LMS_DEACTIVATE_ON_NOTIFY", false),
			RunLock:                 strings.ToLower(getEnv("LMS_RUN_LOCK", "redis")),
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

// Threshold returns the inactivity window.
func (s SchedulerConfig) Threshold() time.Duration {
	days := s.InactivityThresholdDays
	if days <= 0 {
		days = DefaultInactivityThresholdDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// RunTimeout bounds the duration of a single batch run.
func (s SchedulerConfig) RunTimeout() time.Duration {
	if s.RunTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RunTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the configured JWT lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
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
