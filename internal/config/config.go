// Package config centralises configuration parsing for the export tool.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures runtime configuration values for the export tool.
type Config struct {
	Username        string
	Password        string
	ActivitiesFile  string
	DailyHealthFile string
	GPSTracksDir    string
	StartDate       string // Historical epoch bounding the first run.
	APIBaseURL      string
	HTTPTimeout     time.Duration
	MetricsAddress  string // Empty disables the metrics listener.
	ProgressEvery   int    // 0 keeps the per-batch defaults.
}

// Load reads environment variables into Config, applying the defaults the
// tool has always used. Credentials have no default; PASSWORD is accepted as
// a legacy fallback for GARMIN_PASSWORD.
func Load() Config {
	return Config{
		Username:        getEnv("GARMIN_USER", ""),
		Password:        getEnv("GARMIN_PASSWORD", getEnv("PASSWORD", "")),
		ActivitiesFile:  getEnv("OUTPUT_FILE", "garmin_stats.csv"),
		DailyHealthFile: getEnv("DAILY_HEALTH_FILE", "garmin_daily_health.csv"),
		GPSTracksDir:    getEnv("GPS_TRACKS_DIR", "gps_tracks"),
		StartDate:       getEnv("START_DATE", "2000-01-01"),
		APIBaseURL:      getEnv("GARMIN_API_BASE_URL", "https://connectapi.garmin.com"),
		HTTPTimeout:     getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MetricsAddress:  getEnv("METRICS_ADDRESS", ""),
		ProgressEvery:   getIntEnv("PROGRESS_EVERY", 0),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
