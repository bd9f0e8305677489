// Command recorder attaches to a Chromium browser over CDP and records the
// session as a HAR trace, optionally compiling it to a Grinder script.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/har2grinder/internal/browser"
	"github.com/dgnsrekt/har2grinder/internal/capture"
	"github.com/dgnsrekt/har2grinder/internal/cdp"
	"github.com/dgnsrekt/har2grinder/internal/config"
	"github.com/dgnsrekt/har2grinder/internal/grinder"
	"github.com/dgnsrekt/har2grinder/internal/notify"
	"github.com/dgnsrekt/har2grinder/internal/storage"
	"github.com/dgnsrekt/har2grinder/internal/trace"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	journalBufferSize = 1024
	journalMaxSizeMB  = 100
	notifyTimeout     = 10 * time.Second
)

func main() {
	cfg, err := config.LoadRecorder()
	if err != nil {
		slog.Error("failed to load recorder config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	var compileOpts *grinder.Options
	if cfg.ScriptOutput != "" {
		settings, err := config.LoadSettings()
		if err != nil {
			slog.Error("failed to load compile settings", "error", err)
			os.Exit(1)
		}
		opts := settings.CompileOptions()
		compileOpts = &opts
	}

	slog.Info("recorder config loaded",
		"cdp_address", cfg.CDPAddress,
		"cdp_port", cfg.CDPPort,
		"tab_url_filter", cfg.TabURLFilter,
		"reload_on_attach", cfg.ReloadOnAttach,
		"launch_browser", cfg.LaunchBrowser,
		"output", cfg.Output,
		"script_output", cfg.ScriptOutput,
		"journal_dir", cfg.JournalDir,
		"max_post_bytes", cfg.MaxPostBytes,
		"notify", cfg.NotifyURL != "",
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.ConfigFromRecorder(cfg))
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	sessionID := uuid.NewString()
	journal := storage.NewJournal(cfg.JournalDir, sessionID, journalBufferSize, journalMaxSizeMB)
	defer func() {
		if err := journal.Close(); err != nil {
			slog.Warn("journal close failed", "error", err)
		}
	}()

	tabRegistry := cdp.NewTabRegistry()
	rec := capture.NewRecorder(tabRegistry, journal, cfg.MaxPostBytes, sessionID)
	defer rec.Close()

	cdpClient := cdp.NewClient(cfg, rec, tabRegistry)
	if err := cdpClient.Connect(ctx); err != nil {
		slog.Error("failed to connect to browser", "error", err)
		slog.Info("make sure Chromium is running with --remote-debugging-port or set RECORDER_LAUNCH_BROWSER=true")
		os.Exit(1)
	}

	slog.Info("recording", "session_id", sessionID, "tabs", cdpClient.GetTabCount(), "output", cfg.Output)
	slog.Info("press Ctrl+C to stop and write the trace")

	<-sigCh
	slog.Info("shutdown signal received")

	if err := cdpClient.Close(); err != nil {
		slog.Warn("CDP close failed", "error", err)
	}
	summary, err := writeOutputs(rec, cfg, compileOpts)
	if err != nil {
		slog.Error("failed to write recording", "error", err)
		os.Exit(1)
	}
	if cfg.NotifyURL != "" {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), notifyTimeout)
		if err := notify.Send(notifyCtx, nil, cfg.NotifyURL, summary.Message()); err != nil {
			slog.Warn("completion notification failed", "error", err)
		}
		notifyCancel()
	}
	slog.Info("recorder stopped")
}

// writeOutputs saves the HAR and, when opts is set, the compiled script.
func writeOutputs(rec *capture.Recorder, cfg *config.RecorderConfig, opts *grinder.Options) (notify.Recording, error) {
	if n := rec.PendingCount(); n > 0 {
		slog.Warn("requests still in flight are not recorded", "count", n)
	}

	doc, ann := rec.HAR()
	summary := notify.Recording{
		SessionID: rec.SessionID(),
		Trace:     cfg.Output,
		Pages:     len(doc.Log.Pages),
		Entries:   len(doc.Log.Entries),
	}
	data, err := trace.Encode(doc, ann)
	if err != nil {
		return summary, err
	}
	if err := storage.WriteTrace(cfg.Output, data); err != nil {
		return summary, err
	}
	slog.Info("trace written", "path", cfg.Output, "pages", summary.Pages, "entries", summary.Entries)

	if opts == nil {
		return summary, nil
	}
	tr, err := trace.Parse(data)
	if err != nil {
		return summary, fmt.Errorf("reparse recorded trace: %w", err)
	}
	script, err := grinder.Compile(tr, *opts)
	if err != nil {
		return summary, err
	}
	if err := storage.WriteFileAtomic(cfg.ScriptOutput, script.Bytes()); err != nil {
		return summary, err
	}
	summary.Script = cfg.ScriptOutput
	summary.Compiled = script.Stats.Compiled
	slog.Info("script written", "path", cfg.ScriptOutput, "compiled", summary.Compiled)
	return summary, nil
}

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
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
