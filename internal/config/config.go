package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable aliases for the backend endpoint, checked in order.
// Two earlier deployments used the unprefixed names; both keep working.
var (
	backendURLVars = []string{"DRAFTFORGE_BACKEND_URL", "BACKEND_URL", "GENERATION_API_URL"}
	backendKeyVars = []string{"DRAFTFORGE_BACKEND_API_KEY", "BACKEND_API_KEY", "GENERATION_API_KEY"}
)

// Config holds all configuration for the DraftForge server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Content  ContentConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// BackendConfig describes the external content-generation service.
type BackendConfig struct {
	BaseURL           string
	APIKey            string
	SubmitMaxAttempts int
	DefaultTimeout    time.Duration
	PollInterval      time.Duration
	PollMaxAttempts   int
}

type ContentConfig struct {
	Dir string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("DRAFTFORGE_PORT", 8080),
			Env:  envString("DRAFTFORGE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Backend: BackendConfig{
			BaseURL:           envFirst(backendURLVars),
			APIKey:            envFirst(backendKeyVars),
			SubmitMaxAttempts: envInt("DRAFTFORGE_SUBMIT_MAX_ATTEMPTS", 3),
			DefaultTimeout:    envDurationSecs("DRAFTFORGE_BACKEND_TIMEOUT_SECS", 300*time.Second),
			PollInterval:      envDurationSecs("DRAFTFORGE_POLL_INTERVAL_SECS", 5*time.Second),
			PollMaxAttempts:   envInt("DRAFTFORGE_POLL_MAX_ATTEMPTS", 20),
		},
		Content: ContentConfig{
			Dir: envString("DRAFTFORGE_CONTENT_DIR", "generated_content"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend URL is required: set one of %s", strings.Join(backendURLVars, ", "))
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend URL must start with http:// or https://, got %q", c.Backend.BaseURL)
	}

	if c.Backend.SubmitMaxAttempts < 1 {
		return fmt.Errorf("DRAFTFORGE_SUBMIT_MAX_ATTEMPTS must be at least 1")
	}
	if c.Backend.PollMaxAttempts < 1 {
		return fmt.Errorf("DRAFTFORGE_POLL_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// Diagnostics returns non-fatal configuration warnings, evaluated once at
// process start. A missing backend API key is a warning, not an error:
// unauthenticated calls are attempted.
func (c *Config) Diagnostics() []string {
	var warns []string
	if c.Backend.APIKey == "" {
		warns = append(warns, fmt.Sprintf(
			"no backend API key configured (checked %s); calls will be unauthenticated",
			strings.Join(backendKeyVars, ", ")))
	}
	return warns
}

// envFirst returns the first non-empty value among the given variable names.
func envFirst(keys []string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
