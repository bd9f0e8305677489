package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/dgnsrekt/har2grinder/internal/config"
)

const (
	defaultWindowSize = "1920,1080"
	readyTimeout      = 15 * time.Second
	readyPoll         = 250 * time.Millisecond
	stopGrace         = 5 * time.Second
)

// ErrNoBrowser is returned when no Chromium build is on PATH.
var ErrNoBrowser = errors.New("browser: no chromium or chrome binary found")

var binaryNames = []string{"chromium-browser", "chromium", "google-chrome"}

const macChrome = "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"

// Config describes the Chromium instance a recording session drives.
type Config struct {
	CDPAddress string
	CDPPort    int
	StartURL   string
	ProfileDir string
	WindowSize string
}

// ConfigFromRecorder takes the launch settings from the recorder config.
func ConfigFromRecorder(cfg *config.RecorderConfig) Config {
	return Config{
		CDPAddress: cfg.CDPAddress,
		CDPPort:    cfg.CDPPort,
		StartURL:   cfg.StartURL,
		ProfileDir: cfg.ProfileDir,
	}
}

// Launcher owns a Chromium process started for recording. A launcher that
// found the debugging port already taken attaches nothing and stops nothing.
type Launcher struct {
	cfg     Config
	cmd     *exec.Cmd
	running bool
}

func NewLauncher(cfg Config) *Launcher {
	if cfg.WindowSize == "" {
		cfg.WindowSize = defaultWindowSize
	}
	return &Launcher{cfg: cfg}
}

func (l *Launcher) debugAddr() string {
	return net.JoinHostPort(l.cfg.CDPAddress, strconv.Itoa(l.cfg.CDPPort))
}

func findBinary() (string, error) {
	for _, name := range binaryNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		if _, err := os.Stat(macChrome); err == nil {
			return macChrome, nil
		}
	}
	return "", fmt.Errorf("%w (tried %v)", ErrNoBrowser, binaryNames)
}

func listening(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Launch starts Chromium with remote debugging on and blocks until its
// DevTools endpoint answers. An already listening port is taken to be a
// browser the user opened, and is reused.
func (l *Launcher) Launch(ctx context.Context) error {
	addr := l.debugAddr()
	if listening(addr) {
		slog.Info("debugging port in use, recording the running browser", "addr", addr)
		return nil
	}

	bin, err := findBinary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.cfg.ProfileDir, 0o755); err != nil {
		return fmt.Errorf("browser: profile dir: %w", err)
	}

	l.cmd = exec.Command(bin, l.args()...)
	l.cmd.Stderr = os.Stderr
	if err := l.cmd.Start(); err != nil {
		return fmt.Errorf("browser: start %s: %w", bin, err)
	}
	l.running = true
	slog.Info("recording browser started", "binary", bin, "pid", l.cmd.Process.Pid, "profile", l.cfg.ProfileDir)

	if err := l.waitReady(ctx); err != nil {
		l.Stop()
		return err
	}
	slog.Debug("devtools endpoint ready", "addr", addr)
	return nil
}

// args builds the Chromium command line. The disk cache stays on so cache
// hits show up in the recording.
func (l *Launcher) args() []string {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(l.cfg.CDPPort),
		"--remote-debugging-address=" + l.cfg.CDPAddress,
		"--user-data-dir=" + l.cfg.ProfileDir,
		"--window-size=" + l.cfg.WindowSize,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-dev-shm-usage",
		"--disable-breakpad",
		"--disable-background-networking",
	}
	if l.cfg.StartURL != "" {
		args = append(args, l.cfg.StartURL)
	}
	return args
}

func (l *Launcher) waitReady(ctx context.Context) error {
	url := "http://" + l.debugAddr() + "/json/version"
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("browser: devtools not ready at %s: %w", url, ctx.Err())
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
	}
}

// Running reports whether this launcher owns a live browser process.
func (l *Launcher) Running() bool {
	return l.running
}

// Stop ends a browser this launcher started. It sends SIGTERM and kills the
// process if it is still alive after a grace period.
func (l *Launcher) Stop() {
	if l.cmd == nil || l.cmd.Process == nil {
		return
	}
	pid := l.cmd.Process.Pid
	_ = l.cmd.Process.Signal(syscall.SIGTERM)

	exited := make(chan struct{})
	go func() {
		_ = l.cmd.Wait()
		close(exited)
	}()

	select {
	case <-exited:
		slog.Info("recording browser closed", "pid", pid)
	case <-time.After(stopGrace):
		slog.Warn("recording browser ignored SIGTERM, killing", "pid", pid)
		_ = l.cmd.Process.Kill()
		<-exited
	}
	l.cmd = nil
	l.running = false
}
