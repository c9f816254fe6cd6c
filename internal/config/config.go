package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	APIURL         string        `env:"CAMPUS_API_URL" envDefault:"https://sih-besy.onrender.com"`
	DataDir        string        `env:"CAMPUS_DATA_DIR"`
	Store          string        `env:"CAMPUS_STORE" envDefault:"sqlite"`
	RedisAddr      string        `env:"CAMPUS_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string        `env:"CAMPUS_REDIS_PASSWORD"`
	RedisDB        int           `env:"CAMPUS_REDIS_DB" envDefault:"0"`
	RedisPrefix    string        `env:"CAMPUS_REDIS_PREFIX" envDefault:"campus:session:"`
	RequestTimeout time.Duration `env:"CAMPUS_REQUEST_TIMEOUT" envDefault:"10s"`
	LogLevel       string        `env:"CAMPUS_LOG_LEVEL" envDefault:"info"`

	DBPath  string
	LogPath string
}

// Default returns the configuration used when no environment overrides are set.
func Default() Config {
	dataDir := filepath.Join(userConfigDir(), "campus")
	return Config{
		APIURL:         "https://sih-besy.onrender.com",
		DataDir:        dataDir,
		Store:          StoreSQLite,
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "campus:session:",
		RequestTimeout: 10 * time.Second,
		LogLevel:       "info",
		DBPath:         filepath.Join(dataDir, "session.db"),
		LogPath:        filepath.Join(dataDir, "debug.log"),
	}
}

// Load reads CAMPUS_* environment variables on top of Default and validates
// the result.
func Load() (Config, error) {
	cfg, err := Parse()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse is Load without validation, for callers that apply further
// overrides first.
func Parse() (Config, error) {
	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.SetDataDir(cfg.DataDir)
	return cfg, nil
}

// SetDataDir moves the database and log file under dir.
func (c *Config) SetDataDir(dir string) {
	if dir == "" {
		dir = Default().DataDir
	}
	c.DataDir = dir
	c.DBPath = filepath.Join(dir, "session.db")
	c.LogPath = filepath.Join(dir, "debug.log")
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want sqlite, redis or memory)", c.Store)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api url %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
