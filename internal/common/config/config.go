package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API         APIConfig
	Booking     BookingConfig
	Preferences PreferencesConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	Telemetry   TelemetryConfig
}

// APIConfig points the client at the GoRoute backend
type APIConfig struct {
	BaseURL         string
	Timeout         time.Duration
	RateLimitPerMin int
}

type BookingConfig struct {
	WaitlistCloseDelay time.Duration
}

// PreferencesConfig selects where the theme/language record lives
type PreferencesConfig struct {
	Backend       string // "file" or "postgres"
	FilePath      string
	StorageKey    string
	RetentionDays int           // postgres only: prune records untouched this long
	PruneInterval time.Duration // postgres only
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	DiscordURL string
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
}

func Load() (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:         getEnv("GOROUTE_API_URL", "http://127.0.0.1:8000"),
			Timeout:         getDurationEnv("GOROUTE_API_TIMEOUT", 10*time.Second),
			RateLimitPerMin: getIntEnv("GOROUTE_RATE_LIMIT_PER_MIN", 120),
		},
		Booking: BookingConfig{
			WaitlistCloseDelay: getDurationEnv("GOROUTE_WAITLIST_CLOSE_DELAY", 1500*time.Millisecond),
		},
		Preferences: PreferencesConfig{
			Backend:       strings.ToLower(getEnv("PREFERENCES_BACKEND", "file")),
			FilePath:      getEnv("PREFERENCES_FILE", defaultPreferencesPath()),
			StorageKey:    getEnv("PREFERENCES_KEY", "goroute-theme"),
			RetentionDays: getIntEnv("PREFERENCES_RETENTION_DAYS", 90),
			PruneInterval: getDurationEnv("PREFERENCES_PRUNE_INTERVAL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "goroute"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", ""),
			DiscordURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "goroute-client"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     strings.EqualFold(getEnv("OTEL_EXPORTER_OTLP_INSECURE", "false"), "true"),
		},
	}

	if err := cfg.API.Validate(); err != nil {
		return nil, fmt.Errorf("api config: %w", err)
	}
	if err := cfg.Preferences.Validate(); err != nil {
		return nil, fmt.Errorf("preferences config: %w", err)
	}

	return cfg, nil
}

func (c *APIConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https, got %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("rate limit per minute must be positive")
	}
	return nil
}

func (c *PreferencesConfig) Validate() error {
	switch c.Backend {
	case "file":
		if c.FilePath == "" {
			return fmt.Errorf("PREFERENCES_FILE is required for the file backend")
		}
	case "postgres":
		if c.RetentionDays <= 0 || c.PruneInterval <= 0 {
			return fmt.Errorf("retention and prune interval must be positive")
		}
	default:
		return fmt.Errorf("unknown preferences backend %q", c.Backend)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("storage key cannot be empty")
	}
	return nil
}

// Validate is only called when the postgres preferences backend is in use
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" || c.DBName == "" || c.User == "" {
		return fmt.Errorf("DB_HOST, DB_NAME and DB_USER are required")
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func defaultPreferencesPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "goroute-preferences.json"
	}
	return dir + string(os.PathSeparator) + "goroute" + string(os.PathSeparator) + "preferences.json"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
