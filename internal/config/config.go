package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv merges an optional .env file into the environment. Variables
// already set win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}
}

// CLIConfig holds logging settings for the har2grinder command.
type CLIConfig struct {
	LogLevel string
	LogFile  string
}

// LoadCLI reads command-line tool configuration from environment variables.
func LoadCLI() *CLIConfig {
	loadDotEnv()
	return &CLIConfig{
		LogLevel: strings.ToLower(getEnvOrDefault("HAR2GRINDER_LOG_LEVEL", "warn")),
		LogFile:  getEnvOrDefault("HAR2GRINDER_LOG_FILE", "logs/har2grinder.log"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvListOrDefault splits a comma separated variable, dropping empty items.
func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return splitList(strings.Split(val, ","))
}

func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
