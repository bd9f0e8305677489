// Command har2grinder compiles a recorded HAR trace into a Grinder 3.11
// Jython test script written to standard output.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/har2grinder/internal/config"
	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"github.com/dgnsrekt/har2grinder/internal/trace"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	exitOK    = 0
	exitError = 2
)

const usage = `usage: har2grinder <trace.har>

Compiles a HAR trace (plain or gzip-compressed) into a Grinder 3.11
Jython script and writes it to standard output.

Settings are read from settings.yaml (or $HAR2GRINDER_SETTINGS) and the
HAR2GRINDER_EXCLUDED_DOMAINS, HAR2GRINDER_SLEEP_BETWEEN_PAGES and
HAR2GRINDER_FIRST_PAGE_NUMBER environment variables.
`

func main() {
	cfg := config.LoadCLI()
	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(exitError)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 || strings.HasPrefix(args[0], "-") {
		_, _ = io.WriteString(stderr, usage)
		return exitError
	}
	path := args[0]

	settings, err := config.LoadSettings()
	if err != nil {
		return fail(stderr, err)
	}

	tr, err := trace.Load(path)
	if err != nil {
		return fail(stderr, err)
	}

	script, err := grinder.Compile(tr, settings.CompileOptions())
	if err != nil {
		return fail(stderr, err)
	}

	if _, err := script.WriteTo(stdout); err != nil {
		return fail(stderr, fmt.Errorf("write script: %w", err))
	}
	slog.Debug("script written", "trace", path, "pages", script.Stats.Pages, "compiled", script.Stats.Compiled)
	return exitOK
}

func fail(stderr io.Writer, err error) int {
	slog.Debug("compile failed", "error", err)
	_, _ = fmt.Fprintf(stderr, "har2grinder: %v\n", err)
	return exitError
}

// setupLogger sends logs to stderr so stdout carries only the script.
func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelWarn
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
