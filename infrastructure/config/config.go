package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	DataFile      string
	EnableCORS    bool

	// Client configuration
	APIBaseURL   string
	LocalDataDir string

	// Sync timing
	SaveDebounce   time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":3001"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		DataFile:      getEnv("DATA_FILE", "thoughts-data.json"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),

		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:3001"),
		LocalDataDir: getEnv("LOCAL_DATA_DIR", defaultLocalDataDir()),

		SaveDebounce:   getEnvDuration("SAVE_DEBOUNCE", 2*time.Second),
		PollInterval:   getEnvDuration("POLL_INTERVAL", 10*time.Second),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 15*time.Second),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("DATA_FILE is required")
	}
	if c.SaveDebounce <= 0 {
		return fmt.Errorf("SAVE_DEBOUNCE must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultLocalDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.thoughtgraph"
	}
	return ".thoughtgraph"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration gets a duration environment variable with a default value.
// Plain integers are read as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
