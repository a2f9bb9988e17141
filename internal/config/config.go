// Package config handles process settings and the hot-reloadable vision configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings are process-level options read from the environment.
type Settings struct {
	HTTPAddr       string
	GRPCAddr       string
	VisionConfig   string
	ClientLogPath  string
	TessdataPrefix string
	LogLevel       string
	AlertSound     bool
	CaptureTimeout time.Duration
	ConfigPoll     time.Duration
}

// LoadDotEnv loads the first readable .env file. Missing files are not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			slog.Debug("Loaded env file", "path", p)
			return
		}
	}
}

func Load() *Settings {
	return &Settings{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		GRPCAddr:       getEnv("GRPC_ADDR", ":50052"),
		VisionConfig:   getEnv("VISION_CONFIG", "config/vision.yaml"),
		ClientLogPath:  getEnv("CLIENT_LOG_PATH", ""),
		TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AlertSound:     getEnvBool("ALERT_SOUND", true),
		CaptureTimeout: getEnvMillis("CAPTURE_TIMEOUT_MS", 250),
		ConfigPoll:     getEnvMillis("CONFIG_POLL_MS", 1000),
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
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

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvMillis(key string, def int) time.Duration {
	ms := getEnvInt(key, def)
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
