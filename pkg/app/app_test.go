package app_test

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/davrell/appshell/pkg/app"
	"github.com/davrell/appshell/pkg/appadapter"
)

type fakeLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeLogger) Init(logr.RuntimeInfo) {}
func (f *fakeLogger) Enabled(int) bool      { return true }
func (f *fakeLogger) Info(level int, msg string, kvs ...any) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}
func (f *fakeLogger) Error(err error, msg string, kvs ...any) {
	f.mu.Lock()
	f.msgs = append(f.msgs, "ERROR:"+msg)
	f.mu.Unlock()
}
func (f *fakeLogger) WithValues(...any) logr.LogSink { return f }
func (f *fakeLogger) WithName(string) logr.LogSink   { return f }
func (f *fakeLogger) Logger() logr.Logger            { return logr.New(f) }

func (f *fakeLogger) contains(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type countingGraphics struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGraphics) SetNullGraphics() {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
}

func (g *countingGraphics) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestRun_SignalTriggersCleanShutdown(t *testing.T) {
	g := &countingGraphics{}
	adp := appadapter.New(appadapter.ModeHeadless, g)

	sigCh := make(chan os.Signal, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		sigCh <- syscall.SIGTERM
	}()

	exitCode := -1
	err := app.Run(adp,
		app.WithSignalChannel(sigCh),
		app.WithOnExit(func(code int) { exitCode = code }),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exitCode != 0 {
		t.Fatalf("exit code = %d, want 0", exitCode)
	}
	if n := g.count(); n != 1 {
		t.Fatalf("SetNullGraphics called %d times, want 1", n)
	}
}

func TestRun_WarnsAboutUnsupportedGraphics(t *testing.T) {
	fl := &fakeLogger{}
	adp := appadapter.New(appadapter.ModeHeadless, &countingGraphics{})

	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT

	// Default config requests vsync and a max fps; headless supports
	// neither.
	if err := app.Run(adp, app.WithLogger(fl.Logger()), app.WithSignalChannel(sigCh)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !fl.contains("vsync requested") {
		t.Fatal("missing vsync warning")
	}
	if !fl.contains("max-fps requested") {
		t.Fatal("missing max-fps warning")
	}
	if fl.contains("fullscreen requested") {
		t.Fatal("unexpected fullscreen warning")
	}
}

func TestRun_ConfigPathOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.toml")
	contents := `
name = "testapp"

[graphics]
vsync = false
max-fps = 0
fullscreen = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fl := &fakeLogger{}
	adp := appadapter.New(appadapter.ModeHeadless, &countingGraphics{})

	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT

	if err := app.Run(adp,
		app.WithLogger(fl.Logger()),
		app.WithConfigPath(path),
		app.WithSignalChannel(sigCh),
	); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if fl.contains("vsync requested") {
		t.Fatal("vsync warning despite vsync disabled in config")
	}
	if fl.contains("max-fps requested") {
		t.Fatal("max-fps warning despite max-fps disabled in config")
	}
	if !fl.contains("fullscreen requested") {
		t.Fatal("missing fullscreen warning")
	}
}

// captureStderr swaps os.Stderr for a pipe while f runs and returns
// everything written to it.
func captureStderr(t *testing.T, f func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stderr = w
	defer func() { os.Stderr = old }()

	f()

	w.Close()
	os.Stderr = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read captured stderr: %v", err)
	}
	return string(out)
}

func TestRun_DefaultLoggerHonorsConfigVerbosity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.toml")
	if err := os.WriteFile(path, []byte("log-verbosity = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Without WithLogger the bootstrap logs to stderr through stdr at
	// the config's verbosity, so the V(1) line shows up.
	adp := appadapter.New(appadapter.ModeHeadless, &countingGraphics{})
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT

	out := captureStderr(t, func() {
		if err := app.Run(adp, app.WithConfigPath(path), app.WithSignalChannel(sigCh)); err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	if !strings.Contains(out, "vsync requested") {
		t.Fatalf("default logger dropped info output, got %q", out)
	}
	if !strings.Contains(out, "app config applied") {
		t.Fatalf("log-verbosity 1 did not enable V(1) output, got %q", out)
	}

	// Default verbosity of zero suppresses the V(1) line again.
	adp = appadapter.New(appadapter.ModeHeadless, &countingGraphics{})
	sigCh = make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT

	out = captureStderr(t, func() {
		if err := app.Run(adp, app.WithSignalChannel(sigCh)); err != nil {
			t.Errorf("Run: %v", err)
		}
	})
	if !strings.Contains(out, "vsync requested") {
		t.Fatalf("default logger dropped info output, got %q", out)
	}
	if strings.Contains(out, "app config applied") {
		t.Fatalf("V(1) output emitted at verbosity 0, got %q", out)
	}
}

func TestRun_BackgroundRunsAfterAdapterStart(t *testing.T) {
	adp := appadapter.New(appadapter.ModeHeadless, &countingGraphics{})

	fl := &fakeLogger{}
	ran := false
	err := app.Run(adp,
		app.WithLogger(fl.Logger()),
		app.WithBackground(func() {
			// No sleeping: the adapter is guaranteed started by the
			// time the background goroutine is spawned.
			adp.DoPushMainThreadRunnable(func() { ran = true })
			adp.DoPushMainThreadRunnable(func() {
				adp.DoExitMainThreadEventLoop()
			})
		}),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Fatal("background work never ran on the main thread")
	}
}

func TestRun_ConfigLoadErrorAbortsBeforeStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.toml")
	if err := os.WriteFile(path, []byte(`name = [broken`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	adp := appadapter.New(appadapter.ModeHeadless, &countingGraphics{})
	if err := app.Run(adp, app.WithConfigPath(path)); err == nil {
		t.Fatal("Run accepted malformed config")
	}

	// The adapter was never started, so the sanctioned flow still works.
	sigCh := make(chan os.Signal, 1)
	sigCh <- syscall.SIGINT
	if err := app.Run(adp, app.WithSignalChannel(sigCh)); err != nil {
		t.Fatalf("Run after config error: %v", err)
	}
}
