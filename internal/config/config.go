package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the three binaries read from the environment.
// It is built once at startup and passed by reference; components never
// look up environment variables themselves.
type Config struct {
	// Database connection parameters. Defaults match the docker-compose
	// service names so a bare `docker compose up` works.
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	// OpenWeatherMap API key. Required by the poller only.
	APIKey string

	// Read API listen port.
	Port string

	// Path to the static city catalog.
	CitiesFile string

	// Timeout for outbound provider calls.
	HTTPTimeout time.Duration

	// Poller pacing: delay between cities, after a full pass, and before
	// restarting a pass after a fetch failure.
	PollInterval time.Duration
	PassDelay    time.Duration
	ErrorDelay   time.Duration

	// Synchronizer pacing: time between full passes and the politeness
	// delay between cities within a pass.
	SyncInterval time.Duration
	CityDelay    time.Duration

	// First date ever fetched for a city with no historical rows.
	HistoryEpoch string

	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DBHost:       getenvDefault("DB_HOST", "db"),
		DBPort:       getenvDefault("DB_PORT", "5432"),
		DBName:       getenvDefault("POSTGRES_DB", "weather"),
		DBUser:       getenvDefault("POSTGRES_USER", "user"),
		DBPassword:   getenvDefault("POSTGRES_PASSWORD", "password"),
		APIKey:       os.Getenv("API_KEY"),
		Port:         getenvDefault("PORT", "8000"),
		CitiesFile:   getenvDefault("CITIES_FILE", "cities.json"),
		HistoryEpoch: getenvDefault("HISTORY_EPOCH", "2024-01-01"),
		LogLevel:     getenvDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getenvDuration("POLL_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.PassDelay, err = getenvDuration("PASS_DELAY", "60s"); err != nil {
		return nil, err
	}
	if cfg.ErrorDelay, err = getenvDuration("ERROR_DELAY", "10s"); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getenvDuration("SYNC_INTERVAL", "6h"); err != nil {
		return nil, err
	}
	if cfg.CityDelay, err = getenvDuration("CITY_DELAY", "1s"); err != nil {
		return nil, err
	}

	if _, err := time.Parse("2006-01-02", cfg.HistoryEpoch); err != nil {
		return nil, fmt.Errorf("invalid HISTORY_EPOCH: %w", err)
	}

	return cfg, nil
}

// DSN returns the postgres connection string for gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
