package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const minJWTSecretBytes = 32

type Config struct {
	// Server configuration
	Environment string `yaml:"environment"`
	DataDir     string `yaml:"data_dir"`

	// Auth configuration
	JWTSecret  string        `yaml:"jwt_secret"`
	JWTIssuer  string        `yaml:"jwt_issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`

	// Listing configuration
	Timezone      string `yaml:"timezone"`
	UploadDir     string `yaml:"upload_dir"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`

	// Redis configuration, empty disables rate limiting
	RedisURL string `yaml:"redis_url"`

	// Rate limiting
	AuthRateLimit  int           `yaml:"auth_rate_limit"`
	AuthRateWindow time.Duration `yaml:"auth_rate_window"`

	// Monitoring
	EnableMetrics bool `yaml:"enable_metrics"`
}

// LoadConfig reads .env (if present), then the YAML file named by CONFIG_FILE
// (if set), then the process environment. Later sources win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Environment:    "development",
		DataDir:        "pb_data",
		JWTIssuer:      "ticket-resale",
		TokenTTL:       time.Hour,
		BcryptCost:     10,
		Timezone:       "Local",
		UploadDir:      "uploads",
		MaxImageBytes:  5 << 20,
		AuthRateLimit:  20,
		AuthRateWindow: time.Minute,
		EnableMetrics:  true,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)

	// Auth
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.TokenTTL = getEnvAsDuration("TOKEN_TTL", c.TokenTTL)
	c.BcryptCost = getEnvAsInt("BCRYPT_COST", c.BcryptCost)

	// Listings
	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.MaxImageBytes = int64(getEnvAsInt("MAX_IMAGE_BYTES", int(c.MaxImageBytes)))

	// Redis
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.AuthRateLimit = getEnvAsInt("AUTH_RATE_LIMIT", c.AuthRateLimit)
	c.AuthRateWindow = getEnvAsDuration("AUTH_RATE_WINDOW", c.AuthRateWindow)

	// Monitoring
	c.EnableMetrics = getEnvAsBool("ENABLE_METRICS", c.EnableMetrics)
}

func (c *Config) Validate() error {
	if len(c.JWTSecret) < minJWTSecretBytes {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minJWTSecretBytes)
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("config: MAX_IMAGE_BYTES must be positive")
	}
	return nil
}

// Location returns the zone used for calendar-day arithmetic. Validate has
// already checked the name, so an error falls back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}
