package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`

	// Storage
	Backend     string `validate:"required,oneof=file postgres sqlite"`
	DataDir     string `validate:"required"`
	NotesFile   string `validate:"required"`
	DatabaseURL string `validate:"required_if=Backend postgres"`
	SQLitePath  string `validate:"required_if=Backend sqlite"`
	WatchFile   bool

	CORSOrigins []string

	// RemoteURL points the study UI at another notes server. Empty means the
	// UI talks to this process's service directly.
	RemoteURL     string        `validate:"omitempty,url"`
	RemoteTimeout time.Duration `validate:"gt=0"`
}

// Load reads a .env file if present, then builds the config from the
// environment and validates it.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, envLoaded, err
	}
	return cfg, envLoaded, nil
}

func FromEnv() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Backend:       strings.ToLower(getEnv("NOTES_BACKEND", BackendFile)),
		DataDir:       getEnv("NOTES_DATA_DIR", "data"),
		NotesFile:     getEnv("NOTES_FILE", "algorithm_notes.json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", ""),
		WatchFile:     getBool("WATCH_NOTES_FILE", true),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
		RemoteURL:     getEnv("NOTES_REMOTE_URL", ""),
		RemoteTimeout: getDuration("NOTES_REMOTE_TIMEOUT", 10*time.Second),
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NotesPath is the notes file location, resolved against the working
// directory when DataDir is relative.
func (c *Config) NotesPath() string {
	dir := c.DataDir
	if !filepath.IsAbs(dir) {
		if wd, err := os.Getwd(); err == nil {
			dir = filepath.Join(wd, dir)
		}
	}
	return filepath.Join(dir, c.NotesFile)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
