// Package config loads runtime settings from the environment and an
// optional .env file.
package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ngmaloney/croak-counter/internal/database"
)

// Config holds the application settings
type Config struct {
	DBPath     string
	UploadURL  string
	WeatherURL string
	LogLevel   string
	LogFile    string
}

const (
	DefaultWeatherURL = "https://api.weather.gov"
	DefaultLogFile    = "data/croak-counter.log"
)

// Load reads .env (if present) and the CROAK_* environment variables
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv reads settings from the process environment only
func FromEnv() Config {
	return Config{
		DBPath:     getenv("CROAK_DB_PATH", database.DBPath()),
		UploadURL:  getenv("CROAK_UPLOAD_URL", ""),
		WeatherURL: getenv("CROAK_WEATHER_URL", DefaultWeatherURL),
		LogLevel:   getenv("CROAK_LOG_LEVEL", "info"),
		LogFile:    getenv("CROAK_LOG_FILE", DefaultLogFile),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// ParseLevel maps a level name onto slog. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds a text logger writing to w at the given level
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}
