package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Chart source (upstream ranking provider)
	Chart ChartConfig

	// Contest rules and schedules
	Contest   ContestConfig
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ChartConfig holds the upstream chart provider configuration
type ChartConfig struct {
	Provider          string // rapidapi, billboard
	RapidAPIKey       string
	RapidAPIHost      string
	BillboardBaseURL  string
	RequestsPerSecond int
	Timeout           time.Duration
	MaxRetries        int // 0 = single attempt
	RetryDelay        time.Duration
}

// ContestConfig points at the contest rules file
type ContestConfig struct {
	RulesPath string // empty = built-in defaults
}

// SchedulerConfig holds cron expressions (with seconds) for the batch jobs
type SchedulerConfig struct {
	WeeklyCycle  string
	ContestGuard string
}

// Chart providers
const (
	ProviderRapidAPI  = "rapidapi"
	ProviderBillboard = "billboard"
)

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "waveger"),
			User:            getEnv("DB_USER", "waveger"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Chart source
		Chart: ChartConfig{
			Provider:          getEnv("CHART_PROVIDER", ProviderRapidAPI),
			RapidAPIKey:       getEnv("RAPIDAPI_KEY", ""),
			RapidAPIHost:      getEnv("RAPIDAPI_HOST", "billboard-charts-api.p.rapidapi.com"),
			BillboardBaseURL:  getEnv("BILLBOARD_BASE_URL", "https://www.billboard.com"),
			RequestsPerSecond: getEnvAsInt("CHART_REQUESTS_PER_SEC", 2),
			Timeout:           getEnvAsDuration("CHART_TIMEOUT", "30s"),
			MaxRetries:        getEnvAsInt("CHART_MAX_RETRIES", 3),
			RetryDelay:        getEnvAsDuration("CHART_RETRY_DELAY", "1s"),
		},

		Contest: ContestConfig{
			RulesPath: getEnv("CONTEST_RULES_PATH", ""),
		},

		Scheduler: SchedulerConfig{
			WeeklyCycle:  getEnv("WEEKLY_CYCLE_SCHEDULE", "0 0 12 * * 2"), // Tuesday 12:00
			ContestGuard: getEnv("CONTEST_GUARD_SCHEDULE", "0 0 * * * *"), // hourly
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Chart.Provider {
	case ProviderRapidAPI:
		// RAPIDAPI_KEY is checked lazily: a warm charts cache works without it
	case ProviderBillboard:
		if c.Chart.BillboardBaseURL == "" {
			return fmt.Errorf("BILLBOARD_BASE_URL is required for provider %q", ProviderBillboard)
		}
	default:
		return fmt.Errorf("CHART_PROVIDER must be one of: %s, %s", ProviderRapidAPI, ProviderBillboard)
	}

	if c.Chart.RequestsPerSecond <= 0 {
		return fmt.Errorf("CHART_REQUESTS_PER_SEC must be > 0")
	}
	if c.Chart.MaxRetries < 0 {
		return fmt.Errorf("CHART_MAX_RETRIES must be >= 0")
	}

	return nil
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
