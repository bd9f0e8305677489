package browser

import (
	"errors"
	"net"
	"runtime"
	"slices"
	"testing"

	"github.com/dgnsrekt/har2grinder/internal/config"
)

func TestLauncherArgs(t *testing.T) {
	l := NewLauncher(ConfigFromRecorder(&config.RecorderConfig{
		CDPAddress: "127.0.0.1",
		CDPPort:    9333,
		StartURL:   "https://shop.example/",
		ProfileDir: "/tmp/profile",
	}))
	args := l.args()

	for _, want := range []string{
		"--remote-debugging-port=9333",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
		"--window-size=1920,1080",
	} {
		if !slices.Contains(args, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "https://shop.example/" {
		t.Fatalf("start URL should be the last argument: %v", args)
	}
}

func TestLaunchSkipsWhenCDPPortBusy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: port, ProfileDir: t.TempDir()})
	if err := l.Launch(t.Context()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if l.Running() {
		t.Fatalf("Launch() started a browser although the CDP port was taken")
	}
}

func TestLaunchWithoutBrowserBinary(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("falls back to the app bundle path on macOS")
	}
	t.Setenv("PATH", t.TempDir())

	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: freePort(t), ProfileDir: t.TempDir()})
	err := l.Launch(t.Context())
	if !errors.Is(err, ErrNoBrowser) {
		t.Fatalf("Launch() error = %v, want ErrNoBrowser", err)
	}
	if l.Running() {
		t.Fatal("Running() = true after a failed launch")
	}
	l.Stop()
}

func TestWindowSizeOverride(t *testing.T) {
	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: 9222, WindowSize: "800,600"})
	if !slices.Contains(l.args(), "--window-size=800,600") {
		t.Fatalf("args = %v, want custom window size", l.args())
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}
