package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Lifecycle LifecycleConfig
	Report    ReportConfig
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
	SeedData       bool
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// StorageConfig locates the attachment upload root.
type StorageConfig struct {
	UploadDir string
}

// LifecycleConfig carries the data-driven lookup tables the lifecycle and
// statistics engines match status/priority reference data against.
// Statuses are seeded per deployment (possibly localized), so every set
// here is configuration, not code.
type LifecycleConfig struct {
	// SLAHoursByLevel maps priority level to SLA hours; levels without a
	// mapping fall back to DefaultSLAHours.
	SLAHoursByLevel map[int]int
	DefaultSLAHours int

	// OpenLabels is also the default-status resolution order at ticket
	// creation; InProgressLabels drives the pickup auto-transition.
	OpenLabels       []string
	InProgressLabels []string
	ResolvedLabels   []string
	ClosedLabels     []string

	// UrgentPriorityLabel feeds the admin urgent counter. Matched against
	// the priority label exactly, independent of the numeric level scheme.
	UrgentPriorityLabel string

	IncomingWindowDays   int
	StatsCacheTTLSeconds int
}

// ReportConfig controls the monthly report worker.
type ReportConfig struct {
	WorkerEnabled bool
	CronSpec      string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	slaHours, err := parseLevelHours(getEnv("SLA_HOURS_BY_LEVEL", "1:4,2:8,3:24,4:72"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_HOURS_BY_LEVEL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
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
			SeedData:       getEnvAsBool("POSTGRES_SEED_DATA", true),
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
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "uploads/tickets"),
		},
		Lifecycle: LifecycleConfig{
			SLAHoursByLevel:      slaHours,
			DefaultSLAHours:      getEnvAsInt("SLA_DEFAULT_HOURS", 48),
			OpenLabels:           getEnvAsList("STATUS_OPEN_LABELS", "Ouvert,Open"),
			InProgressLabels:     getEnvAsList("STATUS_IN_PROGRESS_LABELS", "En cours,In progress"),
			ResolvedLabels:       getEnvAsList("STATUS_RESOLVED_LABELS", "Résolu,Resolved"),
			ClosedLabels:         getEnvAsList("STATUS_CLOSED_LABELS", "Fermé,Closed"),
			UrgentPriorityLabel:  getEnv("PRIORITY_URGENT_LABEL", "Urgent"),
			IncomingWindowDays:   getEnvAsInt("STATS_INCOMING_WINDOW_DAYS", 7),
			StatsCacheTTLSeconds: getEnvAsInt("STATS_CACHE_TTL_SECONDS", 30),
		},
		Report: ReportConfig{
			WorkerEnabled: getEnvAsBool("REPORT_WORKER_ENABLED", true),
			CronSpec:      getEnv("REPORT_CRON_SPEC", "0 6 1 * *"),
		},
	}

	if err := cfg.Lifecycle.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects label configurations the lifecycle engine cannot work
// with. Label matching is fragile to typos, so an empty set is treated as
// a misconfiguration rather than silently matching nothing.
func (c LifecycleConfig) Validate() error {
	sets := map[string][]string{
		"STATUS_OPEN_LABELS":        c.OpenLabels,
		"STATUS_IN_PROGRESS_LABELS": c.InProgressLabels,
		"STATUS_RESOLVED_LABELS":    c.ResolvedLabels,
		"STATUS_CLOSED_LABELS":      c.ClosedLabels,
	}
	for name, labels := range sets {
		if len(labels) == 0 {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	if c.DefaultSLAHours <= 0 {
		return fmt.Errorf("SLA_DEFAULT_HOURS must be positive")
	}
	if strings.TrimSpace(c.UrgentPriorityLabel) == "" {
		return fmt.Errorf("PRIORITY_URGENT_LABEL must not be empty")
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

// StatsCacheTTL returns the dashboard cache TTL.
func (c LifecycleConfig) StatsCacheTTL() time.Duration {
	if c.StatsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.StatsCacheTTLSeconds) * time.Second
}

func parseLevelHours(raw string) (map[int]int, error) {
	result := make(map[int]int)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed entry %q", pair)
		}
		level, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed level in %q", pair)
		}
		hours, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed hours in %q", pair)
		}
		result[level] = hours
	}
	return result, nil
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

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
