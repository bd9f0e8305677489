package config

import (
	"fmt"
	"strings"
)

// RecorderConfig holds configuration for the browser session recorder.
type RecorderConfig struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Tab matching and behavior
	TabURLFilter   string
	ReloadOnAttach bool

	// Browser launch
	LaunchBrowser bool
	StartURL      string
	ProfileDir    string

	// Output
	Output       string
	ScriptOutput string
	JournalDir   string
	MaxPostBytes int

	// NotifyURL receives a plain-text summary when the recording is saved.
	NotifyURL string

	LogLevel string
	LogFile  string
}

// LoadRecorder reads recorder configuration from environment variables.
func LoadRecorder() (*RecorderConfig, error) {
	loadDotEnv()
	cfg := &RecorderConfig{
		CDPAddress:     getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:        getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:   getEnvOrDefault("RECORDER_TAB_URL_FILTER", ""),
		ReloadOnAttach: getEnvBoolOrDefault("RECORDER_RELOAD_ON_ATTACH", false),
		LaunchBrowser:  getEnvBoolOrDefault("RECORDER_LAUNCH_BROWSER", false),
		StartURL:       getEnvOrDefault("RECORDER_START_URL", "about:blank"),
		ProfileDir:     getEnvOrDefault("RECORDER_PROFILE_DIR", "./browser_profile"),
		Output:         getEnvOrDefault("RECORDER_OUTPUT", "recording.har"),
		ScriptOutput:   getEnvOrDefault("RECORDER_SCRIPT_OUTPUT", ""),
		JournalDir:     getEnvOrDefault("RECORDER_JOURNAL_DIR", "./recordings"),
		MaxPostBytes:   getEnvIntOrDefault("RECORDER_MAX_POST_BYTES", 1<<20),
		NotifyURL:      getEnvOrDefault("RECORDER_NOTIFY_URL", ""),
		LogLevel:       strings.ToLower(getEnvOrDefault("RECORDER_LOG_LEVEL", "info")),
		LogFile:        getEnvOrDefault("RECORDER_LOG_FILE", "logs/recorder.log"),
	}
	if cfg.Output == "" {
		return nil, fmt.Errorf("recorder config: RECORDER_OUTPUT must not be empty")
	}
	if cfg.ScriptOutput != "" && cfg.ScriptOutput == cfg.Output {
		return nil, fmt.Errorf("recorder config: RECORDER_SCRIPT_OUTPUT must differ from RECORDER_OUTPUT")
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote allocator.
func (c *RecorderConfig) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}
