package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"gopkg.in/yaml.v3"
)

// Settings are the compile settings shared by every entry point.
type Settings struct {
	ExcludedDomains   []string `yaml:"excluded_domains"`
	SleepBetweenPages int      `yaml:"sleep_between_pages"`
	FirstPageNumber   int      `yaml:"first_page_number"`
}

// LoadSettings builds compile settings from defaults, then the optional YAML
// file named by HAR2GRINDER_SETTINGS (default settings.yaml), then
// environment overrides.
func LoadSettings() (*Settings, error) {
	loadDotEnv()

	s := &Settings{SleepBetweenPages: grinder.DefaultSleepBetweenPages}
	path := getEnvOrDefault("HAR2GRINDER_SETTINGS", "settings.yaml")
	if err := s.mergeFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Info("no settings file found, using default values", "path", path)
	}

	s.ExcludedDomains = getEnvListOrDefault("HAR2GRINDER_EXCLUDED_DOMAINS", s.ExcludedDomains)
	s.SleepBetweenPages = getEnvIntOrDefault("HAR2GRINDER_SLEEP_BETWEEN_PAGES", s.SleepBetweenPages)
	s.FirstPageNumber = getEnvIntOrDefault("HAR2GRINDER_FIRST_PAGE_NUMBER", s.FirstPageNumber)

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// mergeFile overlays the keys present in a YAML settings file. Returns an
// os.ErrNotExist-wrapped error if the file is absent.
func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("settings: %s: %w", path, err)
	}
	return nil
}

func (s *Settings) validate() error {
	s.ExcludedDomains = splitList(s.ExcludedDomains)
	if s.SleepBetweenPages < 0 {
		return fmt.Errorf("settings: sleep_between_pages must not be negative, got %d", s.SleepBetweenPages)
	}
	if s.FirstPageNumber < 0 {
		return fmt.Errorf("settings: first_page_number must not be negative, got %d", s.FirstPageNumber)
	}
	return nil
}

// CompileOptions converts the settings for grinder.Compile.
func (s *Settings) CompileOptions() grinder.Options {
	return grinder.Options{
		ExcludedDomains:   append([]string(nil), s.ExcludedDomains...),
		SleepBetweenPages: s.SleepBetweenPages,
		FirstPageNumber:   s.FirstPageNumber,
	}
}
