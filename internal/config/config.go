package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "fallback-secret-key-for-dev-only"

// Config holds application configuration
type Config struct {
	// Server
	Env      string
	Port     string
	LogLevel string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Pipeline endpoints (snapshot sweep, price refresh)
	PipelineAPIKey string

	// Valuation
	ValuationPolicy string

	// Market data
	PriceCacheTTL    time.Duration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	ProviderTimeout  time.Duration
	YahooBaseURL     string
	CoinGeckoBaseURL string
	StaticPrices     string

	// Scheduler
	SchedulerEnabled bool
	SnapshotSchedule string
	AlertSchedule    string
	PriceSchedule    string
	JobTimeout       time.Duration
	SweepConcurrency int
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "investtracker"),
		DBPassword: getEnv("DB_PASSWORD", "investtracker"),
		DBName:     getEnv("DB_NAME", "investtracker"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", devJWTSecret),
		JWTExpirationDur: getDuration("JWT_EXPIRES_IN", 24*time.Hour),

		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		ValuationPolicy: getEnv("VALUATION_POLICY", "fail_fast"),

		PriceCacheTTL:    getDuration("PRICE_CACHE_TTL", 5*time.Minute),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getInt("REDIS_DB", 0),
		ProviderTimeout:  getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		YahooBaseURL:     getEnv("YAHOO_BASE_URL", ""),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", ""),
		StaticPrices:     getEnv("STATIC_PRICES", ""),

		SchedulerEnabled: getBool("SCHEDULER_ENABLED", true),
		SnapshotSchedule: getEnv("SNAPSHOT_SCHEDULE", "0 59 23 * * *"),
		AlertSchedule:    getEnv("ALERT_SCHEDULE", "0 */5 * * * *"),
		PriceSchedule:    getEnv("PRICE_REFRESH_SCHEDULE", "0 */15 * * * *"),
		JobTimeout:       getDuration("JOB_TIMEOUT", 10*time.Minute),
		SweepConcurrency: getInt("SWEEP_CONCURRENCY", 4),
	}

	if config.Env == "production" && config.JWTSecret == devJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	if config.SweepConcurrency < 1 {
		config.SweepConcurrency = 1
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// PipelineClientConfig configures the out-of-process pipeline runner that
// drives the API's /pipeline endpoints.
type PipelineClientConfig struct {
	APIURL          string
	APIKey          string
	LogLevel        string
	RequestTimeout  time.Duration
	RefreshPrices   bool
	RecordSnapshots bool
	CheckAlerts     bool
}

// LoadPipelineClient loads the pipeline runner configuration. PIPELINE_API_URL
// and PIPELINE_API_KEY are required.
func LoadPipelineClient() (*PipelineClientConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := &PipelineClientConfig{
		APIURL:          getEnv("PIPELINE_API_URL", ""),
		APIKey:          getEnv("PIPELINE_API_KEY", ""),
		LogLevel:        getEnv("LOG_LEVEL", ""),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RefreshPrices:   getBool("REFRESH_PRICES", true),
		RecordSnapshots: getBool("RECORD_SNAPSHOTS", true),
		CheckAlerts:     getBool("CHECK_ALERTS", true),
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("PIPELINE_API_URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PIPELINE_API_KEY is required")
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrationURL returns the postgres:// URL used by golang-migrate.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return b
}
