package config

import "strings"

const minTraceBytes = 1 << 20

// ServerConfig holds configuration for the compile API.
type ServerConfig struct {
	BindAddr         string
	PortAutoFallback bool
	PortCandidates   []string
	LogLevel         string
	LogFile          string
	ScriptDir        string
	MaxTraceBytes    int
}

// LoadServer reads server configuration from environment variables.
func LoadServer() (*ServerConfig, error) {
	loadDotEnv()
	cfg := &ServerConfig{
		BindAddr:         getEnvOrDefault("SERVER_BIND_ADDR", "127.0.0.1:8190"),
		PortAutoFallback: getEnvBoolOrDefault("SERVER_PORT_AUTO_FALLBACK", true),
		PortCandidates: getEnvListOrDefault("SERVER_PORT_CANDIDATES",
			[]string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"}),
		LogLevel:      strings.ToLower(getEnvOrDefault("SERVER_LOG_LEVEL", "info")),
		LogFile:       getEnvOrDefault("SERVER_LOG_FILE", "logs/har2grinder_server.log"),
		ScriptDir:     getEnvOrDefault("SCRIPT_DIR", "./scripts"),
		MaxTraceBytes: getEnvIntOrDefault("SERVER_MAX_TRACE_BYTES", 64<<20),
	}
	if cfg.MaxTraceBytes < minTraceBytes {
		cfg.MaxTraceBytes = minTraceBytes
	}
	return cfg, nil
}
