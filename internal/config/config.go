package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	OTP       OTPConfig
	RateLimit RateLimitConfig
	NATS      NATSConfig
	Store     StoreConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	ChannelBinding string // "require" for Neon DB, empty for local
	RunMigrations  bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// PASETO symmetric key sealing the session cookie (must be 32 bytes for v4.local)
	PasetoKey         []byte
	SessionDuration   time.Duration
	PlaceholderDomain string // domain of synthesized emails for phone-only accounts
	DefaultRegion     string // region used to parse phone numbers without a country code
}

type OTPConfig struct {
	CodeLength     int
	TTL            time.Duration
	MaxAttempts    int
	ResendInterval time.Duration
	HashCost       int // bcrypt cost for stored code hashes
	Delivery       string // "log" or "nats"
}

type RateLimitConfig struct {
	IPRequests int
	IPWindow   time.Duration
}

type NATSConfig struct {
	URL        string
	OTPSubject string
}

type StoreConfig struct {
	Timeout    time.Duration
	MaxRetries int
}

// Load reads configuration from environment variables
// Call godotenv.Load() before this if using .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "phoneauth"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			ChannelBinding: getEnv("DB_CHANNEL_BINDING", ""),
			RunMigrations:  getBoolEnv("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			PasetoKey:         []byte(getEnv("PASETO_KEY", "")),
			SessionDuration:   getDurationEnv("SESSION_DURATION", 7*24*time.Hour),
			PlaceholderDomain: getEnv("PLACEHOLDER_EMAIL_DOMAIN", "phone.placeholder.local"),
			DefaultRegion:     getEnv("PHONE_DEFAULT_REGION", "US"),
		},
		OTP: OTPConfig{
			CodeLength:     getIntEnv("OTP_CODE_LENGTH", 6),
			TTL:            getDurationEnv("OTP_TTL", 5*time.Minute),
			MaxAttempts:    getIntEnv("OTP_MAX_ATTEMPTS", 5),
			ResendInterval: getDurationEnv("OTP_RESEND_INTERVAL", time.Minute),
			HashCost:       getIntEnv("OTP_HASH_COST", 10),
			Delivery:       getEnv("OTP_DELIVERY", "log"),
		},
		RateLimit: RateLimitConfig{
			IPRequests: getIntEnv("RATE_LIMIT_IP_REQUESTS", 20),
			IPWindow:   getDurationEnv("RATE_LIMIT_IP_WINDOW", 15*time.Minute),
		},
		NATS: NATSConfig{
			URL:        getEnv("NATS_URL", "nats://localhost:4222"),
			OTPSubject: getEnv("NATS_OTP_SUBJECT", "notify.sms.otp"),
		},
		Store: StoreConfig{
			Timeout:    getDurationEnv("STORE_TIMEOUT", 3*time.Second),
			MaxRetries: getIntEnv("STORE_MAX_RETRIES", 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	var errs []error

	// PASETO v4.local keys are exactly 32 bytes
	if len(c.Auth.PasetoKey) != 32 {
		errs = append(errs, fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey)))
	}
	if c.Auth.SessionDuration <= 0 {
		errs = append(errs, errors.New("SESSION_DURATION must be positive"))
	}
	if c.Auth.PlaceholderDomain == "" {
		errs = append(errs, errors.New("PLACEHOLDER_EMAIL_DOMAIN is required"))
	}
	if c.OTP.CodeLength < 4 || c.OTP.CodeLength > 10 {
		errs = append(errs, fmt.Errorf("OTP_CODE_LENGTH must be between 4 and 10, got %d", c.OTP.CodeLength))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("OTP_MAX_ATTEMPTS must be at least 1"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	if c.OTP.Delivery != "log" && c.OTP.Delivery != "nats" {
		errs = append(errs, fmt.Errorf("OTP_DELIVERY must be log or nats, got %q", c.OTP.Delivery))
	}
	if c.Store.Timeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv reads a whole number of seconds
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
