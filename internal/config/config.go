package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the dispatch engine.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Broker   BrokerConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	Dispatch DispatchConfig
	Disburse DisburseConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BrokerConfig holds the optional AMQP fan-out configuration.
// Events are published to a topic exchange when URL is non-empty.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PricingConfig holds the fare rates used by the fare calculator.
type PricingConfig struct {
	BaseFare           float64
	PerKmRate          float64
	PerMinuteRate      float64
	WaitingPerMinute   float64
	DriverSharePercent float64
}

// DispatchConfig holds assignment and cancellation policy knobs.
type DispatchConfig struct {
	AcceptWindow       time.Duration
	SearchRadiusKm     float64
	CancelWindow       time.Duration
	MaxDailyCancels    int
	SuspensionDuration time.Duration
	HeartbeatTTL       time.Duration
}

// DisburseConfig holds the external disbursement processor configuration.
type DisburseConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	AccountNumber string
	WebhookSecret string
	Timeout       time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			RateLimitPerSec: getFloatEnv("SERVER_RATE_LIMIT_PER_SEC", 20),
			RateLimitBurst:  getIntEnv("SERVER_RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "dispatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Broker: BrokerConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "ride.events"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "ride-dispatch-engine"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret"),
			TokenTTL:  getDurationEnv("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Pricing: PricingConfig{
			BaseFare:           getFloatEnv("PRICING_BASE_FARE", 100),
			PerKmRate:          getFloatEnv("PRICING_PER_KM", 15),
			PerMinuteRate:      getFloatEnv("PRICING_PER_MINUTE", 3),
			WaitingPerMinute:   getFloatEnv("PRICING_WAITING_PER_MINUTE", 2),
			DriverSharePercent: getFloatEnv("PRICING_DRIVER_SHARE_PERCENT", 50),
		},
		Dispatch: DispatchConfig{
			AcceptWindow:       getDurationEnv("DISPATCH_ACCEPT_WINDOW", 60*time.Second),
			SearchRadiusKm:     getFloatEnv("DISPATCH_SEARCH_RADIUS_KM", 5),
			CancelWindow:       getDurationEnv("DISPATCH_CANCEL_WINDOW", 5*time.Minute),
			MaxDailyCancels:    getIntEnv("DISPATCH_MAX_DAILY_CANCELS", 3),
			SuspensionDuration: getDurationEnv("DISPATCH_SUSPENSION_DURATION", 24*time.Hour),
			HeartbeatTTL:       getDurationEnv("DISPATCH_HEARTBEAT_TTL", 30*time.Second),
		},
		Disburse: DisburseConfig{
			BaseURL:       getEnv("DISBURSE_BASE_URL", "https://api.razorpay.com/v1"),
			KeyID:         getEnv("DISBURSE_KEY_ID", ""),
			KeySecret:     getEnv("DISBURSE_KEY_SECRET", ""),
			AccountNumber: getEnv("DISBURSE_ACCOUNT_NUMBER", ""),
			WebhookSecret: getEnv("DISBURSE_WEBHOOK_SECRET", ""),
			Timeout:       getDurationEnv("DISBURSE_TIMEOUT", 15*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
