package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the drills client and stub server
type Config struct {
	Client  ClientConfig
	Session SessionConfig
	Editor  EditorConfig
	Prefs   PrefsConfig
	Redis   RedisConfig
	Server  ServerConfig
	Log     LogConfig
}

// ClientConfig holds drills API connection settings
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SessionConfig holds session controller policies
type SessionConfig struct {
	DefaultCategory string
	SkeletonPolicy  string
	RefreshPolicy   string
}

// EditorConfig holds the workspace editor settings
type EditorConfig struct {
	Workspace string
	Command   string
}

// PrefsConfig selects where preferences are persisted
type PrefsConfig struct {
	Backend string
	Path    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// ServerConfig holds stub API server configuration
type ServerConfig struct {
	Host        string
	Port        int
	FixturesDir string
	APIKey      string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Preference backends
const (
	PrefsFile   = "file"
	PrefsRedis  = "redis"
	PrefsMemory = "memory"
)

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}

	dataDir := defaultDataDir()

	cfg := &Config{
		Client: ClientConfig{
			BaseURL: getEnv("DRILLS_API_URL", "http://127.0.0.1:8000"),
			APIKey:  getEnv("DRILLS_API_KEY", ""),
			Timeout: getEnvAsDuration("DRILLS_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			DefaultCategory: getEnv("DRILLS_CATEGORY", "DSA"),
			SkeletonPolicy:  getEnv("DRILLS_SKELETON_POLICY", "strip"),
			RefreshPolicy:   getEnv("DRILLS_REFRESH_POLICY", "success"),
		},
		Editor: EditorConfig{
			Workspace: getEnv("DRILLS_WORKSPACE", filepath.Join(dataDir, "workspace")),
			Command:   getEnv("EDITOR", "vi"),
		},
		Prefs: PrefsConfig{
			Backend: getEnv("PREFS_BACKEND", PrefsFile),
			Path:    getEnv("PREFS_PATH", filepath.Join(dataDir, "prefs.yaml")),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "127.0.0.1"),
			Port:        getEnvAsInt("SERVER_PORT", 8000),
			FixturesDir: getEnv("FIXTURES_DIR", "./fixtures"),
			APIKey:      getEnv("SERVER_API_KEY", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("drills API URL is required")
	}

	if c.Client.Timeout <= 0 {
		return fmt.Errorf("invalid client timeout: %s", c.Client.Timeout)
	}

	switch c.Session.SkeletonPolicy {
	case "strip", "verbatim":
	default:
		return fmt.Errorf("invalid skeleton policy: %q", c.Session.SkeletonPolicy)
	}

	switch c.Session.RefreshPolicy {
	case "success", "always":
	default:
		return fmt.Errorf("invalid refresh policy: %q", c.Session.RefreshPolicy)
	}

	switch c.Prefs.Backend {
	case PrefsFile, PrefsMemory:
	case PrefsRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("redis address is required for the redis preference backend")
		}
	default:
		return fmt.Errorf("invalid preference backend: %q", c.Prefs.Backend)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	return nil
}

// SlogLevel maps the configured level name onto slog
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "drills")
	}
	return ".drills"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
